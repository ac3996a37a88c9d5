package history

import (
	"context"
	"fmt"
	"time"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// ScanOptions carries the cumulative state of a multi-page scan into the next page.
type ScanOptions struct {
	// Page is the zero-based index of the page being scanned.
	Page int
	// ItemsScanned and LastSeen accumulate across pages.
	ItemsScanned int
	LastSeen     time.Time
	// LatestOnly stops at the first drop.
	LatestOnly bool
	// Since stops the scan at the first row at or before this instant.
	Since *time.Time
	// SkipFirst skips the first row, already consumed as the second half of a mispaged drop.
	SkipFirst bool
}

// Scanner finds drops in history pages.
type Scanner struct{}

// Scan walks the rows of one page.
func (s *Scanner) Scan(ctx context.Context, p *Page, opts ScanOptions) (Outcome, error) {
	out, err := s.scan(ctx, p, opts)
	if err != nil {
		metrics.ScanOutcomes.WithLabelValues(OutcomeMalformed).Inc()
		return nil, err
	}
	metrics.ScanOutcomes.WithLabelValues(out.outcome()).Inc()
	return out, nil
}

func (s *Scanner) scan(ctx context.Context, p *Page, opts ScanOptions) (Outcome, error) {
	log := logger.FromContext(ctx)

	rows, err := parseRows(p)
	if err != nil {
		return nil, err
	}

	lastSeen := opts.LastSeen
	scanned := opts.ItemsScanned
	var drops []domain.NewRankDrop

	consumed := make([]bool, len(rows))
	if opts.SkipFirst && len(rows) > 0 {
		consumed[0] = true
	}

	for i, r := range rows {
		if consumed[i] {
			continue
		}

		ts, err := r.timestamp()
		if err != nil {
			log.Debug(LogMsgRowTimestampFailed, "page", opts.Page, "row", i, "text", r.dateText)
			continue
		}
		scanned++
		lastSeen = ts

		if opts.Since != nil && !ts.After(*opts.Since) {
			return Found{Drops: drops, LastSeen: lastSeen, ItemsScanned: scanned, Cursor: p.Cursor, ReachedBound: true}, nil
		}

		if !r.isDrop() {
			continue
		}

		first, ok := r.item(p)
		if !ok {
			return nil, domainMalformed("drop row without a readable item", opts.Page, i)
		}

		if i == len(rows)-1 && p.Cursor != nil {
			return MispagedDrop{
				Timestamp:    ts,
				FirstItem:    first,
				Cursor:       *p.Cursor,
				LastSeen:     lastSeen,
				ItemsScanned: scanned,
				Preceding:    drops,
			}, nil
		}

		items := []*domain.CsgoItem{first}
		if i+1 < len(rows) {
			next := rows[i+1]
			if _, err := next.timestamp(); err == nil && next.isDrop() {
				if second, ok := next.item(p); ok {
					items = append(items, second)
					consumed[i+1] = true
					scanned++
				}
			}
		}
		drops = append(drops, domain.NewDrop(ts, items...))

		if opts.LatestOnly {
			return Found{Drops: drops, LastSeen: lastSeen, ItemsScanned: scanned, Cursor: p.Cursor}, nil
		}
	}

	if len(drops) > 0 {
		return Found{Drops: drops, LastSeen: lastSeen, ItemsScanned: scanned, Cursor: p.Cursor}, nil
	}
	if p.Cursor == nil {
		return NoDropHistory{LastSeen: lastSeen, ItemsScanned: scanned}, nil
	}
	// Paging on needs a bound: rows newer than lastSeen have all been read.
	if lastSeen.IsZero() {
		return nil, fmt.Errorf("%w: no readable timestamp up to page %d", domain.ErrMalformedPage, opts.Page)
	}
	return NoResultOnThisPage{
		Page:         opts.Page,
		LastSeen:     lastSeen,
		ItemsScanned: scanned,
		Cursor:       *p.Cursor,
	}, nil
}

// ResolveMispaged completes a drop split across a page boundary using the first
// row of the next page. The pairing row must be a drop row but its timestamp is
// not compared with the first item's. When the row is unusable the drop keeps
// its single item.
// consumedFirst reports whether the next page's first row was used.
func (s *Scanner) ResolveMispaged(ctx context.Context, next *Page, m MispagedDrop) (drop domain.NewRankDrop, consumedFirst bool) {
	log := logger.FromContext(ctx)

	rows, err := parseRows(next)
	if err == nil && len(rows) > 0 {
		if _, tsErr := rows[0].timestamp(); tsErr == nil && rows[0].isDrop() {
			if second, ok := rows[0].item(next); ok {
				log.Debug(LogMsgMispagedResolved, "timestamp", m.Timestamp)
				return domain.NewDrop(m.Timestamp, m.FirstItem, second), true
			}
		}
	}

	log.Warn(LogMsgPairingFailed, "timestamp", m.Timestamp, "item", m.FirstItem.Name, "error", err)
	return domain.NewDrop(m.Timestamp, m.FirstItem), false
}
