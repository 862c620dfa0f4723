package window

import (
	"fmt"
	"math/bits"
	"strings"
)

// WindowStyle is a set of window style bits.
type WindowStyle uint32

// Window style bits.
const (
	StyleBorder       WindowStyle = 0x00800000
	StyleCaption      WindowStyle = 0x00C00000
	StyleChild        WindowStyle = 0x40000000
	StyleChildWindow  WindowStyle = 0x40000000
	StyleClipChildren WindowStyle = 0x02000000
	StyleClipSiblings WindowStyle = 0x04000000
	StyleDisabled     WindowStyle = 0x08000000
	StyleDlgFrame     WindowStyle = 0x00400000
	StyleGroup        WindowStyle = 0x00020000
	StyleHScroll      WindowStyle = 0x00100000
	StyleIconic       WindowStyle = 0x20000000
	StyleMaximize     WindowStyle = 0x01000000
	StyleMaximizeBox  WindowStyle = 0x00010000
	StyleMinimize     WindowStyle = 0x20000000
	StyleMinimizeBox  WindowStyle = 0x00020000
	StyleOverlapped   WindowStyle = 0x00000000
	StylePopup        WindowStyle = 0x80000000
	StyleSizeBox      WindowStyle = 0x00040000
	StyleSysMenu      WindowStyle = 0x00080000
	StyleTabStop      WindowStyle = 0x00010000
	StyleThickFrame   WindowStyle = 0x00040000
	StyleTiled        WindowStyle = 0x00000000
	StyleVisible      WindowStyle = 0x10000000
	StyleVScroll      WindowStyle = 0x00200000

	StyleOverlappedWindow = StyleOverlapped | StyleCaption | StyleSysMenu | StyleThickFrame | StyleMinimizeBox | StyleMaximizeBox
	StylePopupWindow      = StylePopup | StyleBorder | StyleSysMenu
	StyleTiledWindow      = StyleOverlappedWindow
)

var windowStyleNames = []struct {
	bit  WindowStyle
	name string
}{
	{StylePopup, "POPUP"},
	{StyleChild, "CHILD"},
	{StyleMinimize, "MINIMIZE"},
	{StyleVisible, "VISIBLE"},
	{StyleDisabled, "DISABLED"},
	{StyleClipSiblings, "CLIPSIBLINGS"},
	{StyleClipChildren, "CLIPCHILDREN"},
	{StyleMaximize, "MAXIMIZE"},
	{StyleBorder, "BORDER"},
	{StyleDlgFrame, "DLGFRAME"},
	{StyleVScroll, "VSCROLL"},
	{StyleHScroll, "HSCROLL"},
	{StyleSysMenu, "SYSMENU"},
	{StyleThickFrame, "THICKFRAME"},
	{StyleGroup, "GROUP"},
	{StyleTabStop, "TABSTOP"},
}

// Has reports whether every bit of flag is set.
func (s WindowStyle) Has(flag WindowStyle) bool { return s&flag == flag }

// With returns s with flag set.
func (s WindowStyle) With(flag WindowStyle) WindowStyle { return s | flag }

// Without returns s with flag cleared.
func (s WindowStyle) Without(flag WindowStyle) WindowStyle { return s &^ flag }

func (s WindowStyle) String() string {
	return flagString(uint32(s), func(yield func(uint32, string)) {
		for _, n := range windowStyleNames {
			yield(uint32(n.bit), n.name)
		}
	})
}

// ExWindowStyle is a set of extended window style bits.
type ExWindowStyle uint32

// Extended window style bits.
const (
	ExStyleAcceptFiles         ExWindowStyle = 0x00000010
	ExStyleAppWindow           ExWindowStyle = 0x00040000
	ExStyleClientEdge          ExWindowStyle = 0x00000200
	ExStyleComposited          ExWindowStyle = 0x02000000
	ExStyleContextHelp         ExWindowStyle = 0x00000400
	ExStyleControlParent       ExWindowStyle = 0x00010000
	ExStyleDlgModalFrame       ExWindowStyle = 0x00000001
	ExStyleLayered             ExWindowStyle = 0x00080000
	ExStyleLayoutRTL           ExWindowStyle = 0x00400000
	ExStyleLeft                ExWindowStyle = 0x00000000
	ExStyleLeftScrollBar       ExWindowStyle = 0x00004000
	ExStyleLTRReading          ExWindowStyle = 0x00000000
	ExStyleMDIChild            ExWindowStyle = 0x00000040
	ExStyleNoActivate          ExWindowStyle = 0x08000000
	ExStyleNoInheritLayout     ExWindowStyle = 0x00100000
	ExStyleNoParentNotify      ExWindowStyle = 0x00000004
	ExStyleNoRedirectionBitmap ExWindowStyle = 0x00200000
	ExStyleRight               ExWindowStyle = 0x00001000
	ExStyleRightScrollBar      ExWindowStyle = 0x00000000
	ExStyleRTLReading          ExWindowStyle = 0x00002000
	ExStyleStaticEdge          ExWindowStyle = 0x00020000
	ExStyleToolWindow          ExWindowStyle = 0x00000080
	ExStyleTopmost             ExWindowStyle = 0x00000008
	ExStyleTransparent         ExWindowStyle = 0x00000020
	ExStyleWindowEdge          ExWindowStyle = 0x00000100

	ExStyleOverlappedWindow = ExStyleWindowEdge | ExStyleClientEdge
	ExStylePaletteWindow    = ExStyleWindowEdge | ExStyleToolWindow | ExStyleTopmost
)

var exStyleNames = []struct {
	bit  ExWindowStyle
	name string
}{
	{ExStyleNoActivate, "NOACTIVATE"},
	{ExStyleComposited, "COMPOSITED"},
	{ExStyleLayoutRTL, "LAYOUTRTL"},
	{ExStyleNoRedirectionBitmap, "NOREDIRECTIONBITMAP"},
	{ExStyleNoInheritLayout, "NOINHERITLAYOUT"},
	{ExStyleLayered, "LAYERED"},
	{ExStyleAppWindow, "APPWINDOW"},
	{ExStyleStaticEdge, "STATICEDGE"},
	{ExStyleControlParent, "CONTROLPARENT"},
	{ExStyleLeftScrollBar, "LEFTSCROLLBAR"},
	{ExStyleRTLReading, "RTLREADING"},
	{ExStyleRight, "RIGHT"},
	{ExStyleContextHelp, "CONTEXTHELP"},
	{ExStyleClientEdge, "CLIENTEDGE"},
	{ExStyleWindowEdge, "WINDOWEDGE"},
	{ExStyleToolWindow, "TOOLWINDOW"},
	{ExStyleMDIChild, "MDICHILD"},
	{ExStyleTransparent, "TRANSPARENT"},
	{ExStyleAcceptFiles, "ACCEPTFILES"},
	{ExStyleTopmost, "TOPMOST"},
	{ExStyleNoParentNotify, "NOPARENTNOTIFY"},
	{ExStyleDlgModalFrame, "DLGMODALFRAME"},
}

// Has reports whether every bit of flag is set.
func (s ExWindowStyle) Has(flag ExWindowStyle) bool { return s&flag == flag }

// With returns s with flag set.
func (s ExWindowStyle) With(flag ExWindowStyle) ExWindowStyle { return s | flag }

// Without returns s with flag cleared.
func (s ExWindowStyle) Without(flag ExWindowStyle) ExWindowStyle { return s &^ flag }

func (s ExWindowStyle) String() string {
	return flagString(uint32(s), func(yield func(uint32, string)) {
		for _, n := range exStyleNames {
			yield(uint32(n.bit), n.name)
		}
	})
}

// flagString names the set bits of v, highest first, and prints leftover
// bits in hex. Bits with more than one name use the first name listed.
func flagString(v uint32, names func(yield func(uint32, string))) string {
	if v == 0 {
		return "0"
	}
	var parts []string
	rest := v
	names(func(bit uint32, name string) {
		if bits.OnesCount32(bit) == 1 && rest&bit != 0 {
			parts = append(parts, name)
			rest &^= bit
		}
	})
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%X", rest))
	}
	return strings.Join(parts, "|")
}
