package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/1broseidon/winquery/internal/window"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var windowColumns = []string{"ID", "TITLE", "CLASS", "PROCESS", "PID", "GEOMETRY", "STATE"}

const maxTitleWidth = 48

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func geometry(r window.Rect) string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// flags summarises the boolean state of a window, e.g. "maximized,active".
func flags(info window.Info) string {
	parts := []string{info.State()}
	if !info.Visible {
		parts = append(parts, "hidden")
	}
	if info.Active {
		parts = append(parts, "active")
	}
	if info.AlwaysOnTop {
		parts = append(parts, "pinned")
	}
	return strings.Join(parts, ",")
}

func windowRow(info window.Info) []string {
	return []string{
		strconv.FormatUint(info.ID, 10),
		truncate(info.Title, maxTitleWidth),
		info.Class,
		info.Process,
		strconv.Itoa(info.PID),
		geometry(info.Rect),
		flags(info),
	}
}

// renderWindows formats infos as a table. Colors are only used when color
// is set.
func renderWindows(infos []window.Info, color bool) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, windowRow(info))
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	activeStyle := cellStyle
	dimStyle := cellStyle
	if color {
		headerStyle = headerStyle.Foreground(lipgloss.Color("62"))
		activeStyle = activeStyle.Foreground(lipgloss.Color("42"))
		dimStyle = dimStyle.Foreground(lipgloss.Color("241"))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(windowColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case infos[row].Active:
				return activeStyle
			case !infos[row].Visible || infos[row].Minimized:
				return dimStyle
			}
			return cellStyle
		})
	return t.String()
}

func printInfo(w io.Writer, info window.Info) {
	fmt.Fprintf(w, "id:            %d\n", info.ID)
	fmt.Fprintf(w, "title:         %s\n", info.Title)
	fmt.Fprintf(w, "class:         %s\n", info.Class)
	fmt.Fprintf(w, "process:       %s\n", info.Process)
	fmt.Fprintf(w, "pid:           %d\n", info.PID)
	fmt.Fprintf(w, "geometry:      %s\n", geometry(info.Rect))
	fmt.Fprintf(w, "state:         %s\n", info.State())
	fmt.Fprintf(w, "visible:       %v\n", info.Visible)
	fmt.Fprintf(w, "active:        %v\n", info.Active)
	fmt.Fprintf(w, "always_on_top: %v\n", info.AlwaysOnTop)
}
