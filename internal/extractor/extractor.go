// Package extractor pulls ad records out of listing and detail pages.
package extractor

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"adwatch/internal/model"
)

// Default selectors for the listing entries and the detail description.
const (
	DefaultEntrySelector       = "div[class*='ads__unit__content']"
	DefaultDescriptionSelector = "meta[name*='description']"
)

// ParseError reports a page or entry whose structure did not match expectations.
type ParseError struct {
	Index  int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return "parse: " + e.Reason
	}
	return fmt.Sprintf("parse entry %d: %s", e.Index, e.Reason)
}

// Extractor reads ads from listing pages and descriptions from detail pages.
type Extractor struct {
	entrySelector       string
	descriptionSelector string
	log                 *slog.Logger
}

// New creates an Extractor using the default selectors.
func New(log *slog.Logger) *Extractor {
	return &Extractor{
		entrySelector:       DefaultEntrySelector,
		descriptionSelector: DefaultDescriptionSelector,
		log:                 log,
	}
}

// ListingAds parses a listing page and returns its ads as a sequence.
// Malformed entries are logged and skipped. A page with no entries at all
// means the layout changed and is reported as a ParseError. The returned
// sequence is evaluated lazily on each iteration.
func (e *Extractor) ListingAds(content []byte) (iter.Seq[model.Ad], error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Index: -1, Reason: fmt.Sprintf("listing document: %v", err)}
	}
	entries := doc.Find(e.entrySelector)
	if entries.Length() == 0 {
		return nil, &ParseError{Index: -1, Reason: "no listing entries matched " + e.entrySelector}
	}

	return func(yield func(model.Ad) bool) {
		for i := range entries.Length() {
			ad, err := parseEntry(i, entries.Eq(i))
			if err != nil {
				e.log.Warn("skip malformed ad entry", "error", err)
				continue
			}
			if !yield(ad) {
				return
			}
		}
	}, nil
}

// parseEntry reads the ID and title from the first block's first element and
// the location from the second block's second element.
func parseEntry(i int, entry *goquery.Selection) (model.Ad, error) {
	blocks := entry.Children()
	if blocks.Length() < 2 {
		return model.Ad{}, &ParseError{Index: i, Reason: fmt.Sprintf("want at least 2 blocks, got %d", blocks.Length())}
	}

	head := blocks.Eq(0).Children().First()
	if head.Length() == 0 {
		return model.Ad{}, &ParseError{Index: i, Reason: "missing title element"}
	}
	id := strings.TrimSpace(head.AttrOr("id", ""))
	if id == "" {
		return model.Ad{}, &ParseError{Index: i, Reason: "missing ad id"}
	}

	loc := blocks.Eq(1).Children().Eq(1)
	if loc.Length() == 0 {
		return model.Ad{}, &ParseError{Index: i, Reason: "missing location element"}
	}

	return model.Ad{
		ID:       id,
		Title:    strings.TrimSpace(head.Text()),
		Location: strings.TrimSpace(loc.Text()),
	}, nil
}

// Description returns the content of the description meta element of a detail page.
func (e *Extractor) Description(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", &ParseError{Index: -1, Reason: fmt.Sprintf("detail document: %v", err)}
	}
	meta := doc.Find(e.descriptionSelector).First()
	desc, ok := meta.Attr("content")
	if !ok {
		return "", &ParseError{Index: -1, Reason: "missing description meta"}
	}
	return strings.TrimSpace(desc), nil
}
