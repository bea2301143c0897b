// Package render turns a digest payload into the HTML email body.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/policy"
	"AINewsDigest/internal/ports"
)

const (
	bodyLimit    = 120
	emptyBody    = "Click to read the full article for more details."
	headerDate   = "Monday, January 2, 2006"
	itemDate     = "January 2, 2006"
	shownAuthors = 2
)

//go:embed digest.html.tmpl
var digestTemplate string

// HTMLRenderer renders the digest with html/template; output depends only on the payload.
type HTMLRenderer struct {
	tmpl *template.Template
}

var _ ports.Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer parses the embedded template.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: template.Must(template.New("digest").Parse(digestTemplate))}
}

type view struct {
	Date     string
	Summary  string
	Sections []sectionView
}

type sectionView struct {
	Title string
	Items []itemView
}

type itemView struct {
	Title  string
	URL    string
	Source string
	Date   string
	Body   string
	Tags   []string
}

// Render produces the HTML document.
func (r *HTMLRenderer) Render(payload domain.DigestPayload) (string, error) {
	counts := payload.Counts()
	v := view{
		Date: payload.GeneratedAt().Format(headerDate),
		Summary: fmt.Sprintf("%d Papers • %d News • %d Discussions",
			counts[domain.SourcePaper], counts[domain.SourceNews], counts[domain.SourceDiscussion]),
	}
	for _, st := range domain.SourceTypes() {
		section := sectionView{Title: sectionTitle(st)}
		for _, item := range payload.Section(st) {
			section.Items = append(section.Items, toView(item))
		}
		v.Sections = append(v.Sections, section)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute digest template: %w", err)
	}
	return buf.String(), nil
}

func sectionTitle(st domain.SourceType) string {
	switch st {
	case domain.SourceDiscussion:
		return "Community Discussions"
	case domain.SourcePaper:
		return "Research Papers"
	default:
		return "Industry News"
	}
}

func toView(item domain.ContentItem) itemView {
	return itemView{
		Title:  item.Title,
		URL:    item.URL,
		Source: sourceLine(item),
		Date:   item.PublishedAt.Format(itemDate),
		Body:   Excerpt(item.Body),
		Tags:   item.Tags,
	}
}

func sourceLine(item domain.ContentItem) string {
	switch item.SourceType() {
	case domain.SourceDiscussion:
		return fmt.Sprintf("%s • %d points • %d comments", item.SourceLabel, item.Score, item.CommentCount)
	case domain.SourcePaper:
		authors := item.Authors
		if len(authors) == 0 {
			return item.SourceLabel
		}
		line := strings.Join(authors[:min(shownAuthors, len(authors))], ", ")
		if len(authors) > shownAuthors {
			line += " et al."
		}
		return item.SourceLabel + " • " + line
	default:
		return item.SourceLabel
	}
}

// Excerpt strips markup and shortens text for the email card.
func Excerpt(body string) string {
	clean := policy.CleanText(body)
	if clean == "" {
		return emptyBody
	}
	return policy.TruncateRunes(clean, bodyLimit)
}
