// Package markup holds the HTML helpers shared by site adapters: CSS link
// extraction via goquery and XPath text extraction via htmlquery.
package markup

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
)

// Document parses htmlText for CSS queries. Unparsable input yields an empty document.
func Document(htmlText string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

// Links returns the href of every element matching selector, resolved
// against base, with duplicates and non-navigable hrefs dropped.
func Links(sel *goquery.Selection, selector, base string) []string {
	seen := make(map[string]struct{})
	var out []string
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !navigable(href) {
			return
		}
		abs, err := crawler.ResolveLink(base, href)
		if err != nil {
			return
		}
		key, err := crawler.NormalizeURL(abs)
		if err != nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, abs)
	})
	return out
}

func navigable(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	return !strings.HasPrefix(lower, "javascript:") && !strings.HasPrefix(lower, "mailto:") && !strings.HasPrefix(lower, "tel:")
}

// Text returns the whitespace-collapsed text of s.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Tree parses htmlText for XPath queries.
func Tree(htmlText string) (*html.Node, error) {
	return htmlquery.Parse(strings.NewReader(htmlText))
}

// Texts returns the collapsed inner text of every node matching expr.
// An invalid expression yields nil.
func Texts(root *html.Node, expr string) []string {
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.Join(strings.Fields(htmlquery.InnerText(n)), " "))
	}
	return out
}

// FirstText returns the text of the first node matching expr.
func FirstText(root *html.Node, expr string) (string, bool) {
	node, err := htmlquery.Query(root, expr)
	if err != nil || node == nil {
		return "", false
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(node)), " "), true
}

// SumCounts adds up engagement counters. Thousand separators are ignored and
// values that are not integers contribute zero.
// The total saturates at math.MaxInt.
func SumCounts(values []string) int {
	total := 0
	for _, v := range values {
		n := ParseCount(v)
		if n > math.MaxInt-total {
			return math.MaxInt
		}
		total += n
	}
	return total
}

// ParseCount parses one counter such as "1.204" or "37".
func ParseCount(v string) int {
	v = strings.NewReplacer(".", "", ",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(v))
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseDate tries each layout in order within loc and returns the instant in UTC.
func ParseDate(text string, layouts []string, loc *time.Location) (time.Time, bool) {
	text = strings.Join(strings.Fields(text), " ")
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
