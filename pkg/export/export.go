// Package export renders harvested records into a standalone, searchable HTML page.
package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"followexport/pkg/models"
)

//go:embed document.html.tmpl
var documentTemplate string

var document = template.Must(template.New("document").Parse(documentTemplate))

const (
	modeWithResources    = "with avatars (base64 embedded)"
	modeWithoutResources = "no avatars (URL only)"
)

type cardView struct {
	SearchText       string
	UserLink         string
	DisplayName      string
	ResourceURL      string
	Avatar           template.URL
	ShowResourceLink bool
	Descriptions     []string
}

type pageView struct {
	Count int
	Cards []cardView
	Date  string
	Mode  string
}

// Render produces the export document. With includeResources, cards embed
// the encoded avatar when one exists; without it, cards link to the avatar URL.
// Every interpolated field is escaped by html/template.
func Render(records []*models.Record, includeResources bool, generatedAt time.Time) ([]byte, error) {
	page := pageView{
		Count: len(records),
		Cards: make([]cardView, 0, len(records)),
		Date:  formatDate(generatedAt),
		Mode:  modeWithoutResources,
	}
	if includeResources {
		page.Mode = modeWithResources
	}

	for _, rec := range records {
		if rec == nil {
			continue
		}
		card := cardView{
			SearchText:       rec.SearchText(),
			UserLink:         rec.IdentityKey,
			DisplayName:      rec.DisplayName,
			ResourceURL:      rec.ResourceURL,
			ShowResourceLink: !includeResources,
		}
		if includeResources {
			card.Avatar = embeddable(rec.EncodedResource)
		}
		for _, line := range rec.DescriptionLines {
			if line != "" {
				card.Descriptions = append(card.Descriptions, line)
			}
		}
		page.Cards = append(page.Cards, card)
	}
	page.Count = len(page.Cards)

	var buf bytes.Buffer
	if err := document.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return buf.Bytes(), nil
}

// embeddable marks a data URI as safe for an img src. Anything that is not a
// base64 image payload produced by the fetcher is dropped.
func embeddable(encoded string) template.URL {
	lower := strings.ToLower(encoded)
	if strings.HasPrefix(lower, "data:image/") || strings.HasPrefix(lower, "data:application/octet-stream") {
		return template.URL(encoded)
	}
	return ""
}

// FileName names the artifact after the export mode, limit, final count and date
func FileName(withResources bool, limit, count int, date time.Time) string {
	mode := "no_avatars"
	if withResources {
		mode = "with_avatars"
	}
	note := "_all"
	if limit > 0 {
		note = fmt.Sprintf("_limit%d", limit)
	}
	return fmt.Sprintf("weibo_following_export_%s%s_%d_%s.html", mode, note, count, formatDate(date))
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
