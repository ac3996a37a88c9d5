package history

import (
	"fmt"

	"github.com/osse101/DropTracker_Go/internal/domain"
)

// Page is one decoded inventory history response.
type Page struct {
	Success bool `json:"success"`
	// HTML is nil when the response carried no markup field at all.
	HTML   *string        `json:"html"`
	Num    int            `json:"num"`
	Cursor *domain.Cursor `json:"cursor,omitempty"`
	// Descriptions is keyed by app id, then by "<classid>_<instanceid>".
	Descriptions map[string]map[string]ItemDescription `json:"descriptions"`
}

// ItemDescription is the side-table entry for one item class.
type ItemDescription struct {
	Name           string `json:"name"`
	MarketHashName string `json:"market_hash_name"`
	Marketable     int    `json:"marketable"`
	IconURL        string `json:"icon_url"`
	NameColor      string `json:"name_color"`
}

func (p *Page) description(appID, classID, instanceID string) (ItemDescription, bool) {
	key := classID + "_" + instanceID
	if byKey, ok := p.Descriptions[appID]; ok {
		if d, ok := byKey[key]; ok {
			return d, true
		}
	}
	for _, byKey := range p.Descriptions {
		if d, ok := byKey[key]; ok {
			return d, true
		}
	}
	return ItemDescription{}, false
}

// Credentials authorise a history request.
type Credentials struct {
	SteamID     uint64
	AccessToken string
}

func (c Credentials) cookieValue() string {
	return fmt.Sprintf("%d%%7C%%7C%s", c.SteamID, c.AccessToken)
}

// FetchError is a failed history request: transport failure, non-200 status,
// success=false or undecodable JSON.
type FetchError struct {
	Status int
	Cursor domain.Cursor
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch history page (cursor %d/%s): status %d: %v", e.Cursor.Time, e.Cursor.S, e.Status, e.Cause)
	}
	return fmt.Sprintf("fetch history page (cursor %d/%s): %v", e.Cursor.Time, e.Cursor.S, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }
