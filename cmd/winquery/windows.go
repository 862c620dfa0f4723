package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/1broseidon/winquery/internal/config"
	"github.com/1broseidon/winquery/internal/hotkeys"
	"github.com/1broseidon/winquery/internal/window"
	"golang.org/x/term"
)

// queryFlags are the window selection options shared by window commands.
type queryFlags struct {
	configPath   string
	match        config.WindowMatch
	excludeTitle string
	id           uint64
	hidden       bool
}

func addQueryFlags(fs *flag.FlagSet) *queryFlags {
	q := &queryFlags{}
	fs.StringVar(&q.configPath, "config", "", "Config file path (default: ~/.config/winquery/config.yaml)")
	fs.StringVar(&q.match.Title, "title", "", "Window title to match")
	fs.StringVar(&q.match.Class, "class", "", "Window class")
	fs.StringVar(&q.match.Exe, "exe", "", "Process name or executable path")
	fs.StringVar(&q.match.Text, "text", "", "Text the window must contain")
	fs.StringVar(&q.match.Match, "match", "", "Title match mode: prefix, contains, exact, regex")
	fs.StringVar(&q.excludeTitle, "exclude-title", "", "Skip windows whose title matches")
	fs.Uint64Var(&q.id, "id", 0, "Window id (overrides the other criteria)")
	fs.BoolVar(&q.hidden, "hidden", false, "Also match hidden windows")
	return q
}

func (q *queryFlags) filter(client *window.Client) (window.Filter, error) {
	if q.id != 0 {
		return client.AllWindows().Filter(window.ID(q.id))
	}
	f, err := hotkeys.Filter(client, q.match)
	if err != nil {
		return f, err
	}
	if q.hidden {
		f = f.IncludeHiddenWindows(true)
	}
	if q.excludeTitle != "" {
		f = f.Exclude(window.ExcludeTitle(q.excludeTitle))
	}
	return f, nil
}

func (q *queryFlags) constrained() bool {
	return q.id != 0 || !q.match.Empty()
}

// fieldFlag is an int flag that records whether it was given.
type fieldFlag struct {
	v window.Field[int]
}

func (f *fieldFlag) String() string {
	if v, ok := f.v.Get(); ok {
		return strconv.Itoa(v)
	}
	return ""
}

func (f *fieldFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v = window.Is(n)
	return nil
}

func newCommand(name, usage, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: winquery %s %s\n", name, usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, summary)
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	return fs
}

func runList(args []string) int {
	fs := newCommand("list", "[options]", "List matching windows front to back.")
	q := addQueryFlags(fs)
	asJSON := fs.Bool("json", false, "Output JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	windows, err := f.All(r.ctx)
	if err != nil {
		return fail(err)
	}
	infos := make([]window.Info, 0, len(windows))
	for _, w := range windows {
		info, err := w.Describe(r.ctx)
		if err != nil {
			return fail(fmt.Errorf("describe %s: %w", w, err))
		}
		infos = append(infos, info)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			return fail(err)
		}
		return 0
	}
	color := term.IsTerminal(int(os.Stdout.Fd()))
	fmt.Fprintln(os.Stdout, renderWindows(infos, color))
	return 0
}

func runInfo(args []string) int {
	fs := newCommand("info", "[options]", "Describe the top-most matching window.")
	q := addQueryFlags(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	w, err := f.First(r.ctx)
	if err != nil {
		return fail(err)
	}
	if !w.Valid() {
		fmt.Fprintf(os.Stderr, "no window matches %s\n", f)
		return 1
	}
	info, err := w.Describe(r.ctx)
	if err != nil {
		return fail(err)
	}
	printInfo(os.Stdout, info)
	return 0
}

func runActivate(args []string) int {
	fs := newCommand("activate", "[options]", "Activate the top-most matching window.")
	q := addQueryFlags(fs)
	timeout := fs.Duration("timeout", 0, "Wait up to this long for the window to become active")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	ok, err := f.Activate(r.ctx, *timeout)
	if err != nil {
		return fail(err)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "window did not become active")
		return 1
	}
	return 0
}

func runClose(args []string) int {
	fs := newCommand("close", "[options]", "Close the top-most matching window, or all of them with --all.")
	q := addQueryFlags(fs)
	all := fs.Bool("all", false, "Close every matching window")
	kill := fs.Bool("kill", false, "Kill instead of asking politely")
	timeout := fs.Duration("timeout", 0, "Wait up to this long for the windows to go away")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if !q.constrained() {
		fmt.Fprintln(os.Stderr, "close needs at least one of --title, --class, --exe, --text or --id")
		return 2
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	var closed bool
	switch {
	case *all && *kill:
		closed, err = f.KillAll(r.ctx, *timeout)
	case *all:
		closed, err = f.CloseAll(r.ctx, *timeout)
	case *kill:
		closed, err = f.Kill(r.ctx, *timeout)
	default:
		closed, err = f.Close(r.ctx, *timeout)
	}
	if err != nil {
		return fail(err)
	}
	if !closed {
		fmt.Fprintln(os.Stderr, "matching windows remain open")
		return 1
	}
	return 0
}

func runStateChange(name string, args []string) int {
	fs := newCommand(name, "[options]", fmt.Sprintf("%s the top-most matching window, or all of them with --all.", capitalize(name)))
	q := addQueryFlags(fs)
	all := fs.Bool("all", false, "Apply to every matching window")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	switch {
	case name == "minimize" && *all:
		err = f.MinimizeAll(r.ctx)
	case name == "minimize":
		err = f.Minimize(r.ctx)
	case name == "maximize" && *all:
		err = f.MaximizeAll(r.ctx)
	case name == "maximize":
		err = f.Maximize(r.ctx)
	case *all:
		err = f.RestoreAll(r.ctx)
	default:
		err = f.Restore(r.ctx)
	}
	if err != nil {
		return fail(err)
	}
	return 0
}

func runMove(args []string) int {
	fs := newCommand("move", "[options]", "Move and/or resize the top-most matching window.")
	q := addQueryFlags(fs)
	var x, y, width, height fieldFlag
	fs.Var(&x, "x", "New left edge")
	fs.Var(&y, "y", "New top edge")
	fs.Var(&width, "width", "New width")
	fs.Var(&height, "height", "New height")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	w, err := f.First(r.ctx)
	if err != nil {
		return fail(err)
	}
	if !w.Valid() {
		fmt.Fprintf(os.Stderr, "no window matches %s\n", f)
		return 1
	}
	if err := w.Move(r.ctx, window.MoveOptions{X: x.v, Y: y.v, Width: width.v, Height: height.v}); err != nil {
		return fail(err)
	}
	return 0
}

func runWait(args []string) int {
	fs := newCommand("wait", "[options]", "Wait for a matching window. Exits 1 on timeout.")
	q := addQueryFlags(fs)
	state := fs.String("state", "exists", "exists, active, inactive or closed")
	timeout := fs.Duration("timeout", 30*time.Second, "Give up after this long (0 waits forever)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	r, err := connect(q.configPath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	f, err := q.filter(r.client)
	if err != nil {
		return fail(err)
	}
	var ok bool
	switch *state {
	case "exists":
		var w window.Window
		w, err = f.Wait(r.ctx, *timeout)
		ok = w.Valid()
		if ok {
			fmt.Fprintln(os.Stdout, w.ID())
		}
	case "active":
		ok, err = f.WaitActive(r.ctx, *timeout)
	case "inactive":
		ok, err = f.WaitInactive(r.ctx, *timeout)
	case "closed":
		ok, err = f.WaitClose(r.ctx, *timeout)
	default:
		fmt.Fprintf(os.Stderr, "unknown state %q\n", *state)
		return 2
	}
	if err != nil {
		return fail(err)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "timed out")
		return 1
	}
	return 0
}
