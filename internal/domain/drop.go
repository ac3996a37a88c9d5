package domain

import (
	"fmt"
	"time"

	"github.com/osse101/DropTracker_Go/internal/dropwindow"
)

// MaxDropItems is the number of rows the platform groups into one drop.
const MaxDropItems = 2

// NewRankDrop is one weekly rank-up drop.
type NewRankDrop struct {
	Timestamp *time.Time  `json:"timestamp,omitempty"`
	Items     []*CsgoItem `json:"items"`

	// Hints used when the history scan could not pin an exact timestamp.
	KnownAvailable  bool       `json:"known_available,omitempty"`
	UnobtainedSince *time.Time `json:"unobtained_since,omitempty"`
}

// NewDrop builds a timestamped drop. Passing more than MaxDropItems items is a programming error.
func NewDrop(ts time.Time, items ...*CsgoItem) NewRankDrop {
	if len(items) > MaxDropItems {
		panic(fmt.Sprintf("domain: a drop holds at most %d items, got %d", MaxDropItems, len(items)))
	}
	return NewRankDrop{Timestamp: &ts, Items: items}
}

// LastDropTime returns the drop timestamp when known.
func (d NewRankDrop) LastDropTime() (time.Time, bool) {
	if d.Timestamp == nil {
		return time.Time{}, false
	}
	return *d.Timestamp, true
}

// Availability reports whether a new drop can be earned at now.
// nil means the history did not contain enough information to decide.
func (d NewRankDrop) Availability(now time.Time) *bool {
	if d.Timestamp != nil {
		available := dropwindow.IsAvailable(*d.Timestamp, now)
		return &available
	}
	if d.KnownAvailable {
		available := true
		return &available
	}
	if d.UnobtainedSince != nil {
		return dropwindow.AvailableSince(*d.UnobtainedSince, now)
	}
	return nil
}

// MarketNames lists the market-lookup names of the marketable items.
func (d NewRankDrop) MarketNames() []string {
	names := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		if item.Marketable && item.MarketName != "" {
			names = append(names, item.MarketName)
		}
	}
	return names
}
