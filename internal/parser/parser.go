// Package parser extracts (domain, price, next_token) triples from one
// catalog page body.
package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"hugedomains-crawler/internal/models"
)

// Row is one parsed listing, before it is staged or deduplicated.
type Row struct {
	Name   string
	Price  *decimal.Decimal
	Length int
}

var priceCleaner = regexp.MustCompile(`[^\d.]`)

// Parse extracts every `div.domain-row` block's listing and the
// continuation token, if any. A listing missing either the name anchor or
// the price span is dropped, keeping the rest of the page intact. An
// unparseable or empty price yields a null price rather than dropping the
// row.
func Parse(body string) (rows []Row, nextToken *string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, nil, err
	}

	doc.Find("div.domain-row").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("span.domain > a.link")
		if link.Length() == 0 {
			return
		}
		name := strings.ToLower(strings.TrimSpace(link.Text()))
		if name == "" {
			return
		}

		price := s.Find("span.domain > span.price")
		if price.Length() == 0 {
			return
		}
		priceVal := parsePrice(price.Text())

		rows = append(rows, Row{
			Name:   name,
			Price:  priceVal,
			Length: models.DomainLength(name),
		})
	})

	nextToken = findNextToken(doc)
	return rows, nextToken, nil
}

// parsePrice strips everything but digits and '.', then parses as decimal.
// An empty or unparseable result yields a nil (null) price: "$0.00" ->
// 0.00, "" -> null, "$1,234.56" -> 1234.56.
func parsePrice(text string) *decimal.Decimal {
	cleaned := priceCleaner.ReplaceAllString(strings.TrimSpace(text), "")
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	rounded := d.Round(2)
	return &rounded
}

// findNextToken locates the first a.next-link or a.next-serch-link (the
// misspelling is the upstream's, and both spellings must be accepted) and
// extracts its `n=` query parameter.
func findNextToken(doc *goquery.Document) *string {
	link := doc.Find("a.next-link, a.next-serch-link").First()
	if link.Length() == 0 {
		return nil
	}
	href, ok := link.Attr("href")
	if !ok {
		return nil
	}

	if u, err := url.Parse(href); err == nil {
		if n := u.Query().Get("n"); n != "" {
			return &n
		}
	}

	// Fall back to a direct regex scan in case href isn't a well-formed URL
	// (the upstream sometimes emits a bare query string).
	if m := nTokenPattern.FindStringSubmatch(href); m != nil {
		return &m[1]
	}
	return nil
}

var nTokenPattern = regexp.MustCompile(`[?&]n=([^&"]+)`)
