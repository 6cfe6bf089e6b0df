// Package reader extracts listing data from fetched pages using goquery.
package reader

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/record"
)

// Selectors names the CSS paths the reader extracts listing data from.
type Selectors struct {
	// List view.
	Listing  string
	Link     string
	Title    string
	Price    string
	Location string

	// Detail view. Each spec item carries a label node and usually a value
	// node; some portals render the value as a plain link or as trailing
	// text instead.
	SpecItem  string
	SpecLabel string
	SpecValue string
	SpecAlt   string
}

// DefaultSelectors matches the portal markup the harvester targets.
func DefaultSelectors() Selectors {
	return Selectors{
		Listing:   "div.list-view-content",
		Link:      "a.card-link",
		Title:     "header.list-view-header > h3",
		Price:     "span.list-view-price",
		Location:  "span.list-view-location",
		SpecItem:  "ul.adv-info-list li.spec-item",
		SpecLabel: ".txt",
		SpecValue: ".value-txt",
		SpecAlt:   "a",
	}
}

// Document reads pages with goquery.
type Document struct {
	sel Selectors
}

var _ harvest.DocumentReader = (*Document)(nil)

// NewDocument builds a reader over the given selectors.
func NewDocument(sel Selectors) *Document {
	return &Document{sel: sel}
}

// ReadSummaries extracts one summary per listing card in a list-view page.
// Cards with no link yield a summary without a detail reference; the engine
// decides what to do with those.
func (d *Document) ReadSummaries(page harvest.Page) ([]record.Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse list page %s: %w", page.URL, err)
	}

	var summaries []record.Summary
	doc.Find(d.sel.Listing).Each(func(_ int, card *goquery.Selection) {
		s := record.Summary{
			Title:    cleanText(card.Find(d.sel.Title).First().Text()),
			Price:    cleanText(card.Find(d.sel.Price).First().Text()),
			Location: cleanText(card.Find(d.sel.Location).First().Text()),
		}
		if href, ok := card.Find(d.sel.Link).First().Attr("href"); ok {
			s.DetailRef = strings.TrimSpace(href)
		}
		summaries = append(summaries, s)
	})
	return summaries, nil
}

// ReadLabeledFields extracts the label/value pairs from a detail page's spec
// list. When the dedicated value node is absent it falls back to the first
// link inside the item, then to the item text with the label removed.
func (d *Document) ReadLabeledFields(page harvest.Page) ([]record.LabeledField, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail page %s: %w", page.URL, err)
	}

	var pairs []record.LabeledField
	doc.Find(d.sel.SpecItem).Each(func(_ int, item *goquery.Selection) {
		label := cleanText(item.Find(d.sel.SpecLabel).First().Text())
		if label == "" {
			return
		}
		value := cleanText(item.Find(d.sel.SpecValue).First().Text())
		if value == "" {
			value = cleanText(item.Find(d.sel.SpecAlt).First().Text())
		}
		if value == "" {
			value = cleanText(strings.Replace(item.Text(), label, "", 1))
		}
		pairs = append(pairs, record.LabeledField{Label: label, Value: value})
	})
	return pairs, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
