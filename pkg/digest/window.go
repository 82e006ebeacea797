package digest

import "time"

// WindowDays is the length of the period a digest covers.
const WindowDays = 7

// windowLayout renders "Oct 14".
const windowLayout = "Jan 02"

// Window is the period covered by one digest.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window starting at now and ending WindowDays later.
func NewWindow(now time.Time) Window {
	return Window{Start: now, End: now.AddDate(0, 0, WindowDays)}
}

// String formats the window as "Oct 14 - Oct 21".
func (w Window) String() string {
	return w.Start.Format(windowLayout) + " - " + w.End.Format(windowLayout)
}
