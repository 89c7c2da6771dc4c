package domain

import (
	"fmt"
	"time"
)

// WindowDays is the length of every run window.
const WindowDays = 7

// RunWindow is the half-open interval [Start, End) covered by one run.
type RunWindow struct {
	Start time.Time
	End   time.Time
}

// NewRunWindow ends the window at the reference instant and starts it seven calendar days earlier.
func NewRunWindow(reference time.Time) RunWindow {
	return RunWindow{
		Start: reference.AddDate(0, 0, -WindowDays),
		End:   reference,
	}
}

// Contains reports whether t falls inside [Start, End).
func (w RunWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ISOWeek returns the ISO year and week of the window start.
func (w RunWindow) ISOWeek() (year, week int) {
	return w.Start.ISOWeek()
}

// WeekLabel renders "WW/YYYY".
func (w RunWindow) WeekLabel() string {
	year, week := w.ISOWeek()
	return fmt.Sprintf("%02d/%d", week, year)
}

// PeriodLabel renders "dd/mm/yyyy → dd/mm/yyyy".
func (w RunWindow) PeriodLabel() string {
	return fmt.Sprintf("%s → %s", w.Start.Format("02/01/2006"), w.End.Format("02/01/2006"))
}

// CorpusFilename names the persisted raw corpus of the run.
func (w RunWindow) CorpusFilename() string {
	year, week := w.ISOWeek()
	return fmt.Sprintf("raw_data_s%02d_%d.json", week, year)
}

// DocumentFilename names the full Markdown report of the run.
func (w RunWindow) DocumentFilename() string {
	year, week := w.ISOWeek()
	return fmt.Sprintf("ackee_veille_s%02d_%d.md", week, year)
}

// MessageFilename names the notification message of the run.
func (w RunWindow) MessageFilename() string {
	_, week := w.ISOWeek()
	return fmt.Sprintf("ackee_veille_s%02d_email.eml", week)
}
