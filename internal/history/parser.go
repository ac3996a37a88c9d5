package history

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/osse101/DropTracker_Go/internal/domain"
)

// row is one history entry as it appears in the page markup.
type row struct {
	node        *html.Node
	dateText    string
	description string
}

// parseRows extracts the history rows of a page in document order.
// A page without a markup field is malformed; a page with markup but no rows is not.
func parseRows(p *Page) ([]row, error) {
	if p == nil || p.HTML == nil {
		return nil, fmt.Errorf("%w: missing html field", domain.ErrMalformedPage)
	}

	doc, err := html.Parse(strings.NewReader(*p.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPage, err)
	}

	var rows []row
	walk(doc, func(n *html.Node) bool {
		if !hasClass(n, classRow) {
			return true
		}
		r := row{node: n}
		if d := findFirst(n, func(c *html.Node) bool { return hasClass(c, classDate) }); d != nil {
			r.dateText = dateText(d)
		}
		if d := findFirst(n, func(c *html.Node) bool { return hasClass(c, classDescription) }); d != nil {
			r.description = collapseSpace(textContent(d))
		}
		rows = append(rows, r)
		return false
	})
	return rows, nil
}

// timestamp parses the row's "2 Jan, 2006" + "3:04pm" pair as UTC.
func (r row) timestamp() (time.Time, error) {
	return time.ParseInLocation(dateLayout, r.dateText, time.UTC)
}

// isDrop reports whether the row describes a rank-up drop.
func (r row) isDrop() bool {
	desc := strings.ToLower(r.description)
	for _, phrase := range dropPhrases {
		if strings.Contains(desc, phrase) {
			return true
		}
	}
	return false
}

// item extracts the first item granted by the row, resolving its market name
// through the page's description table.
func (r row) item(p *Page) (*domain.CsgoItem, bool) {
	n := findFirst(r.node, func(c *html.Node) bool {
		return hasClass(c, classItem) && attr(c, attrClassID) != ""
	})
	if n == nil {
		return nil, false
	}

	item := &domain.CsgoItem{}
	if nameNode := findFirst(n, func(c *html.Node) bool { return hasClass(c, classItemName) }); nameNode != nil {
		item.Name = collapseSpace(textContent(nameNode))
		item.Color = styleColor(attr(nameNode, "style"))
	}
	if img := findFirst(n, func(c *html.Node) bool { return c.Type == html.ElementNode && c.Data == "img" }); img != nil {
		item.IconURL = attr(img, "src")
	}

	instanceID := attr(n, attrInstanceID)
	if instanceID == "" {
		instanceID = "0"
	}
	if desc, ok := p.description(attr(n, attrAppID), attr(n, attrClassID), instanceID); ok {
		item.MarketName = desc.MarketHashName
		item.Marketable = desc.Marketable == 1
		if item.Name == "" {
			item.Name = desc.Name
		}
		if item.Color == "" && desc.NameColor != "" {
			item.Color = "#" + strings.TrimPrefix(desc.NameColor, "#")
		}
		if item.IconURL == "" {
			item.IconURL = desc.IconURL
		}
	}
	if item.Name == "" {
		return nil, false
	}
	if item.MarketName == "" {
		item.MarketName = item.Name
	}
	return item, true
}

// walk visits n and its descendants depth-first. visit returns false to skip a subtree.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c != n && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
		return true
	})
	return sb.String()
}

// dateText joins the date cell's own text with its nested time element,
// yielding "2 Jan, 2006 3:04pm".
func dateText(n *html.Node) string {
	var date, clock strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			date.WriteString(c.Data)
		case hasClass(c, classTimestamp):
			clock.WriteString(textContent(c))
		}
	}
	return collapseSpace(date.String() + " " + clock.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func styleColor(style string) string {
	for _, decl := range strings.Split(style, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(key)) == "color" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
