package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/platform/platformtest"
	"github.com/osse101/DropTracker_Go/internal/session"
)

const testSteamID = uint64(76561198000000001)

type testRow struct {
	when    time.Time
	rawDate string // overrides when, for unparseable dates
	desc    string
	classID string
	name    string
}

func dropRow(when time.Time, classID, name string) testRow {
	return testRow{when: when, desc: "Earned a new rank and got a drop", classID: classID, name: name}
}

func tradeRow(when time.Time) testRow {
	return testRow{when: when, desc: "You traded with someone"}
}

func (r testRow) html() string {
	date := r.when.Format("2 Jan, 2006")
	clock := r.when.Format("3:04pm")
	if r.rawDate != "" {
		date, clock = r.rawDate, ""
	}

	var items string
	if r.classID != "" {
		items = fmt.Sprintf(`<div class="tradehistory_items tradehistory_items_plusminus">
      <div class="tradehistory_items_plusminus">+</div>
      <div class="tradehistory_items_group">
        <a class="history_item economy_item_hoverable" data-appid="730" data-classid="%s" data-instanceid="0">
          <img class="tradehistory_received_item_img" src="https://cdn.example/%s.png">
          <span class="history_item_name" style="color: #D2D2D2;">%s</span>
        </a>
      </div>
    </div>`, r.classID, r.classID, r.name)
	}

	return fmt.Sprintf(`<div class="tradehistoryrow">
  <div class="tradehistory_date">
    %s
    <div class="tradehistory_timestamp">%s</div>
  </div>
  <div class="tradehistory_content">
    <div class="tradehistory_event_description">%s</div>
    %s
  </div>
</div>
`, date, clock, r.desc, items)
}

func buildPage(cursor *domain.Cursor, rows ...testRow) *Page {
	var sb strings.Builder
	descriptions := map[string]ItemDescription{}
	for _, r := range rows {
		sb.WriteString(r.html())
		if r.classID != "" {
			descriptions[r.classID+"_0"] = ItemDescription{
				Name:           r.name,
				MarketHashName: "Market " + r.name,
				Marketable:     1,
			}
		}
	}
	markup := sb.String()
	return &Page{
		Success:      true,
		HTML:         &markup,
		Num:          len(rows),
		Cursor:       cursor,
		Descriptions: map[string]map[string]ItemDescription{"730": descriptions},
	}
}

func cursorAt(n int64) *domain.Cursor {
	return &domain.Cursor{Time: 1700000000 - n*1000, TimeFrac: n, S: fmt.Sprintf("%d", 9000+n)}
}

// at returns a minute-precision UTC instant, days before a fixed reference.
func at(daysAgo int, hour, minute int) time.Time {
	ref := time.Date(2024, 10, 16, 0, 0, 0, 0, time.UTC)
	return ref.AddDate(0, 0, -daysAgo).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// fakeFetcher serves pages in call order and records requested cursors.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   []*Page
	errAt   map[int]error
	cursors []domain.Cursor
	creds   []Credentials
}

func (f *fakeFetcher) FetchPage(ctx context.Context, creds Credentials, cursor domain.Cursor) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.cursors)
	f.cursors = append(f.cursors, cursor)
	f.creds = append(f.creds, creds)
	if err, ok := f.errAt[n]; ok {
		return nil, err
	}
	if n >= len(f.pages) {
		return nil, &FetchError{Cursor: cursor, Cause: fmt.Errorf("no page %d scripted", n)}
	}
	return f.pages[n], nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cursors)
}

func authedSession(t *testing.T) *session.Session {
	t.Helper()
	m := session.NewManager(&platformtest.Dialer{}, session.Config{ConnectTimeout: time.Second})
	sess, err := m.GetOrCreate(context.Background(), 0, "main")
	require.NoError(t, err)
	sess.Conn().(*platformtest.Conn).SetLoggedOn(testSteamID)
	sess.BindAccount(&domain.Account{SteamID: testSteamID, Username: "user1", AccessToken: "access-token"})
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}
