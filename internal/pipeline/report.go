package pipeline

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/history"
)

// AccountReport is the result of one account's pipeline.
type AccountReport struct {
	Label string
	// Outcome is the last-drop result; nil in since mode or on error.
	Outcome history.LastDropResult
	// Drops holds the last drop, or every drop found in since mode.
	Drops     []domain.NewRankDrop
	Truncated bool
	// Available is nil when availability could not be determined.
	Available   *bool
	Currency    string
	Unconverted bool
	Err         error
}

// Summary is a one-line description of the report.
func (r AccountReport) Summary() string {
	if r.Err != nil {
		return "error: " + r.Err.Error()
	}

	var sb strings.Builder
	switch o := r.Outcome.(type) {
	case history.DropFound:
		sb.WriteString("last drop " + formatTime(o.NewRankDrop.Timestamp))
	case history.TooLongHistory:
		fmt.Fprintf(&sb, "no drop since %s (%d items scanned)", o.LastSeen.UTC().Format(time.DateOnly), o.ItemsScanned)
	case history.NoDropHistoryFound:
		sb.WriteString("no drop in history")
	default:
		fmt.Fprintf(&sb, "%d drops", len(r.Drops))
		if r.Truncated {
			sb.WriteString(" (history truncated)")
		}
	}
	sb.WriteString(", available: " + availability(r.Available))
	return sb.String()
}

// Value sums the bound prices of every item.
func (r AccountReport) Value() float64 {
	var total float64
	for _, d := range r.Drops {
		for _, item := range d.Items {
			if q, ok := item.Price(); ok {
				total += q.Value
			}
		}
	}
	return total
}

// RunReport collects every account report of a run.
type RunReport struct {
	RunID    string
	Accounts []AccountReport
	Finished time.Time
}

// Succeeded counts accounts without an error.
func (r RunReport) Succeeded() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts accounts with an error.
func (r RunReport) Failed() int { return len(r.Accounts) - r.Succeeded() }

// Format renders the run as plain text, one block per account.
func (r RunReport) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d/%d accounts checked\n", r.Succeeded(), len(r.Accounts))

	for _, a := range r.Accounts {
		fmt.Fprintf(&sb, "\n%s: %s\n", a.Label, a.Summary())
		if a.Err != nil {
			continue
		}
		for _, d := range a.Drops {
			if len(d.Items) == 0 {
				continue
			}
			if len(a.Drops) > 1 {
				fmt.Fprintf(&sb, "  %s\n", formatTime(d.Timestamp))
			}
			for _, item := range d.Items {
				fmt.Fprintf(&sb, "  - %s%s\n", item.Name, formatPrice(item, a.Unconverted))
			}
		}
	}
	return sb.String()
}

func availability(v *bool) string {
	switch {
	case v == nil:
		return availableUnknown
	case *v:
		return availableYes
	default:
		return availableNo
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.UTC().Format(time.DateTime) + " UTC"
}

func formatPrice(item *domain.CsgoItem, unconverted bool) string {
	q, ok := item.Price()
	if !ok {
		return ""
	}
	text := fmt.Sprintf("%.2f %s", q.Value, q.Currency)
	if unit, err := currency.ParseISO(q.Currency); err == nil {
		text = fmt.Sprint(currency.Symbol(unit.Amount(q.Value)))
	}
	text = " (" + text + ", " + q.Provider.String() + ")"
	if unconverted {
		text += " " + unconvertedMark
	}
	return text
}
