// Package history scans the account's inventory history for rank-up drops.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
	"github.com/osse101/DropTracker_Go/internal/progress"
	"github.com/osse101/DropTracker_Go/internal/session"
)

// Paginator drives a Scanner over consecutive history pages.
type Paginator struct {
	fetcher  PageFetcher
	scanner  *Scanner
	progress progress.Sink
	pageCap  int
}

// NewPaginator creates a Paginator. pageCap is the number of follow-up pages fetched
// after the first one before giving up; values below 1 use DefaultPageCap.
func NewPaginator(fetcher PageFetcher, sink progress.Sink, pageCap int) *Paginator {
	if pageCap < 1 {
		pageCap = DefaultPageCap
	}
	if sink == nil {
		sink = progress.Nop{}
	}
	return &Paginator{
		fetcher:  fetcher,
		scanner:  &Scanner{},
		progress: sink,
		pageCap:  pageCap,
	}
}

func credentialsFor(sess *session.Session) (Credentials, error) {
	acc, ok := sess.Account()
	if !ok || !sess.IsAuthenticated() {
		return Credentials{}, fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, sess.Label())
	}
	return Credentials{SteamID: sess.SteamID(), AccessToken: acc.AccessToken}, nil
}

// GetLastDrop returns the most recent drop. It fetches at most pageCap+1 pages,
// plus one more when the drop straddles a page boundary.
func (p *Paginator) GetLastDrop(ctx context.Context, sess *session.Session) (LastDropResult, error) {
	creds, err := credentialsFor(sess)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	task := p.progress.AddTask("Drop history: " + sess.Label())

	cursor := domain.DefaultCursor()
	opts := ScanOptions{LatestOnly: true}

	for {
		task.Describe(fmt.Sprintf("Scanning page %d", opts.Page+1))
		page, err := p.fetcher.FetchPage(ctx, creds, cursor)
		if err != nil {
			task.SetResult("Failed to fetch history")
			return nil, err
		}

		out, err := p.scanner.Scan(ctx, page, opts)
		if err != nil {
			task.SetResult("Unreadable history page")
			return nil, err
		}

		switch o := out.(type) {
		case Found:
			drop := o.Drops[0]
			log.Info(LogMsgDropFound, "timestamp", drop.Timestamp, "items", len(drop.Items))
			task.SetResult(describeDrop(drop))
			return DropFound{NewRankDrop: drop}, nil

		case MispagedDrop:
			task.Describe("Drop continues on the next page")
			next, err := p.fetcher.FetchPage(ctx, creds, o.Cursor)
			if err != nil {
				task.SetResult("Failed to fetch history")
				return nil, err
			}
			drop, _ := p.scanner.ResolveMispaged(ctx, next, o)
			log.Info(LogMsgDropFound, "timestamp", drop.Timestamp, "items", len(drop.Items))
			task.SetResult(describeDrop(drop))
			return DropFound{NewRankDrop: drop}, nil

		case NoResultOnThisPage:
			if o.Page >= p.pageCap {
				log.Info(LogMsgHistoryTooLong, "pages", o.Page+1, "items_scanned", o.ItemsScanned, "last_seen", o.LastSeen)
				metrics.ScanOutcomes.WithLabelValues(OutcomeTooLong).Inc()
				task.SetResult(fmt.Sprintf("No drop since %s (%d items scanned)", o.LastSeen.Format(time.DateOnly), o.ItemsScanned))
				return TooLongHistory{LastSeen: o.LastSeen, ItemsScanned: o.ItemsScanned}, nil
			}
			cursor = o.Cursor
			opts = ScanOptions{
				Page:         o.Page + 1,
				ItemsScanned: o.ItemsScanned,
				LastSeen:     o.LastSeen,
				LatestOnly:   true,
			}

		case NoDropHistory:
			log.Info(LogMsgNoDropHistory, "items_scanned", o.ItemsScanned)
			task.SetResult("No drop in history")
			return NoDropHistoryFound{}, nil
		}
	}
}

// GetDropsSince returns every drop newer than since, newest first. The page cap
// applies as in GetLastDrop; hitting it sets SinceResult.Truncated.
func (p *Paginator) GetDropsSince(ctx context.Context, sess *session.Session, since time.Time) (SinceResult, error) {
	creds, err := credentialsFor(sess)
	if err != nil {
		return SinceResult{}, err
	}
	log := logger.FromContext(ctx)
	task := p.progress.AddTask("Drops since " + since.Format(time.DateOnly) + ": " + sess.Label())

	var result SinceResult
	cursor := domain.DefaultCursor()
	opts := ScanOptions{Since: &since}
	var prefetched *Page

	for {
		page := prefetched
		prefetched = nil
		if page == nil {
			task.Describe(fmt.Sprintf("Scanning page %d", opts.Page+1))
			if page, err = p.fetcher.FetchPage(ctx, creds, cursor); err != nil {
				task.SetResult("Failed to fetch history")
				return result, err
			}
		}

		out, err := p.scanner.Scan(ctx, page, opts)
		if err != nil {
			task.SetResult("Unreadable history page")
			return result, err
		}

		var next *domain.Cursor
		switch o := out.(type) {
		case Found:
			result.Drops = append(result.Drops, o.Drops...)
			result.LastSeen, result.ItemsScanned = o.LastSeen, o.ItemsScanned
			if o.ReachedBound || o.Cursor == nil {
				task.SetResult(fmt.Sprintf("%d drops", len(result.Drops)))
				return result, nil
			}
			next = o.Cursor
			opts.SkipFirst = false

		case MispagedDrop:
			result.Drops = append(result.Drops, o.Preceding...)
			result.LastSeen, result.ItemsScanned = o.LastSeen, o.ItemsScanned
			nextPage, err := p.fetcher.FetchPage(ctx, creds, o.Cursor)
			if err != nil {
				task.SetResult("Failed to fetch history")
				return result, err
			}
			drop, consumed := p.scanner.ResolveMispaged(ctx, nextPage, o)
			result.Drops = append(result.Drops, drop)
			prefetched = nextPage
			next = &o.Cursor
			opts.SkipFirst = consumed

		case NoResultOnThisPage:
			result.LastSeen, result.ItemsScanned = o.LastSeen, o.ItemsScanned
			next = &o.Cursor
			opts.SkipFirst = false

		case NoDropHistory:
			result.LastSeen, result.ItemsScanned = o.LastSeen, o.ItemsScanned
			task.SetResult(fmt.Sprintf("%d drops", len(result.Drops)))
			return result, nil
		}

		if opts.Page >= p.pageCap {
			log.Info(LogMsgHistoryTooLong, "pages", opts.Page+1, "items_scanned", result.ItemsScanned, "last_seen", result.LastSeen)
			result.Truncated = true
			task.SetResult(fmt.Sprintf("%d drops (history truncated)", len(result.Drops)))
			return result, nil
		}
		cursor = *next
		opts.Page++
		opts.ItemsScanned = result.ItemsScanned
		opts.LastSeen = result.LastSeen
	}
}

func describeDrop(d domain.NewRankDrop) string {
	if len(d.Items) == 0 {
		return "Drop without items"
	}
	text := d.Items[0].Name
	for _, item := range d.Items[1:] {
		text += " + " + item.Name
	}
	if d.Timestamp != nil {
		text += " (" + d.Timestamp.Format(time.DateTime) + " UTC)"
	}
	return text
}
