package domain

// Cursor is the opaque continuation token of the inventory history.
// Values come from page responses and are sent back verbatim.
type Cursor struct {
	Time     int64  `json:"time"`
	TimeFrac int64  `json:"time_frac"`
	S        string `json:"s"`
}

// DefaultCursor is the request cursor for the first page.
func DefaultCursor() Cursor {
	return Cursor{Time: 0, TimeFrac: 0, S: "0"}
}
