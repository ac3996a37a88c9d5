package history

import (
	"time"

	"github.com/osse101/DropTracker_Go/internal/domain"
)

// Outcome is the result of scanning one page. It is one of Found,
// NoResultOnThisPage, MispagedDrop or NoDropHistory.
type Outcome interface {
	outcome() string
}

// Found carries the drops located on the page, newest first.
type Found struct {
	Drops        []domain.NewRankDrop
	LastSeen     time.Time
	ItemsScanned int
	// Cursor continues past this page; nil at the end of history.
	Cursor *domain.Cursor
	// ReachedBound is set when a row at or before ScanOptions.Since was seen.
	ReachedBound bool
}

// NoResultOnThisPage means the page held no drop and the history continues at Cursor.
type NoResultOnThisPage struct {
	Page         int
	LastSeen     time.Time
	ItemsScanned int
	Cursor       domain.Cursor
}

// MispagedDrop is a drop on the last row of a page. Its second item, if any, is
// the first row of the page at Cursor.
type MispagedDrop struct {
	Timestamp    time.Time
	FirstItem    *domain.CsgoItem
	Cursor       domain.Cursor
	LastSeen     time.Time
	ItemsScanned int
	// Preceding holds drops found earlier on the same page.
	Preceding []domain.NewRankDrop
}

// NoDropHistory means the history ended without a drop.
type NoDropHistory struct {
	LastSeen     time.Time
	ItemsScanned int
}

func (Found) outcome() string              { return OutcomeFound }
func (NoResultOnThisPage) outcome() string { return OutcomeNoResult }
func (MispagedDrop) outcome() string       { return OutcomeMispaged }
func (NoDropHistory) outcome() string      { return OutcomeNoHistory }

// LastDropResult is the result of Paginator.GetLastDrop. It is one of
// DropFound, TooLongHistory or NoDropHistoryFound.
type LastDropResult interface {
	lastDrop()
	// Drop converts the result into the drop record used for availability.
	Drop() domain.NewRankDrop
}

// DropFound is the most recent drop.
type DropFound struct {
	NewRankDrop domain.NewRankDrop
}

// TooLongHistory means the page cap was hit before a drop was seen. No drop
// happened after LastSeen.
type TooLongHistory struct {
	LastSeen     time.Time
	ItemsScanned int
}

// NoDropHistoryFound means the whole history was scanned without a drop.
type NoDropHistoryFound struct{}

func (DropFound) lastDrop()          {}
func (TooLongHistory) lastDrop()     {}
func (NoDropHistoryFound) lastDrop() {}

func (r DropFound) Drop() domain.NewRankDrop { return r.NewRankDrop }

// A zero LastSeen carries no bound, so availability stays unknown.
func (r TooLongHistory) Drop() domain.NewRankDrop {
	if r.LastSeen.IsZero() {
		return domain.NewRankDrop{}
	}
	since := r.LastSeen
	return domain.NewRankDrop{UnobtainedSince: &since}
}

// A history without any drop means one is available now.
func (NoDropHistoryFound) Drop() domain.NewRankDrop {
	return domain.NewRankDrop{KnownAvailable: true}
}

// SinceResult is the result of Paginator.GetDropsSince.
type SinceResult struct {
	Drops []domain.NewRankDrop
	// Truncated is set when the page cap stopped the scan before the bound was reached.
	Truncated    bool
	LastSeen     time.Time
	ItemsScanned int
}
