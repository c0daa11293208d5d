// Package surface exposes the live following list to the harvest loop: a
// snapshot of visible cards per tick, a scroll side effect and an
// end-of-scroll predicate.
package surface

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"followexport/pkg/models"
)

// Surface is the candidate source read by the harvest loop
type Surface interface {
	// Sample returns the cards currently visible, in document order
	Sample(ctx context.Context) ([]models.Candidate, error)
	// Advance scrolls by ratio of the viewport height, capped at the scroll height
	Advance(ctx context.Context, ratio float64) error
	// AtEnd reports whether the surface is scrolled to the bottom
	AtEnd(ctx context.Context) (bool, error)
}

// Selectors locate a following card and its fields
type Selectors struct {
	Card        string
	Name        string
	Avatar      string
	Description string
}

// ParseCards extracts candidates from an HTML document
func ParseCards(html string, sel Selectors) ([]models.Candidate, error) {
	if sel.Card == "" {
		return nil, fmt.Errorf("card selector is required")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var candidates []models.Candidate
	doc.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Attr("href")
		c := models.Candidate{Href: strings.TrimSpace(href)}

		if sel.Name != "" {
			c.DisplayName = strings.TrimSpace(card.Find(sel.Name).First().Text())
		}
		if sel.Avatar != "" {
			if src, ok := card.Find(sel.Avatar).First().Attr("src"); ok {
				c.ResourceURL = strings.TrimSpace(src)
			}
		}
		if sel.Description != "" {
			card.Find(sel.Description).Each(func(_ int, d *goquery.Selection) {
				if text := strings.TrimSpace(d.Text()); text != "" {
					c.Descriptions = append(c.Descriptions, text)
				}
			})
		}

		candidates = append(candidates, c)
	})

	return candidates, nil
}
