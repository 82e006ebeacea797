package digest

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/dmitrymomot/techdigest/pkg/mailer"
	"github.com/dmitrymomot/techdigest/pkg/sanitizer"
)

// Heading is the title of the digest, in both bodies.
const Heading = "Weekly Tech Events Digest"

// SubjectPrefix starts every digest subject; the window follows it.
const SubjectPrefix = "🗓️ Tech Events This Week - "

// Defaults for absent event fields.
const (
	DefaultHTMLTitle  = "Upcoming Events"
	DefaultHTMLDate   = "This Week"
	DefaultHTMLSource = "Webb Tech Events"
	DefaultTextTitle  = "Event"
	DefaultTextDate   = "TBD"
)

const sentOnLayout = "January 02, 2006"

//go:embed templates/*
var templatesFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("digest.html").
			Funcs(sprig.FuncMap()).
			ParseFS(templatesFS, "templates/digest.html"))
	textTmpl = texttemplate.Must(texttemplate.New("digest.txt").
			Funcs(sprig.TxtFuncMap()).
			ParseFS(templatesFS, "templates/digest.txt"))
)

// Renderer turns events into the HTML and plain-text digest bodies.
type Renderer struct{}

// NewRenderer returns a Renderer using the embedded templates.
func NewRenderer() *Renderer {
	return &Renderer{}
}

type htmlCard struct {
	Title       string
	DateRange   string
	EventCount  string
	Description htmltemplate.HTML
	Source      string
	Note        htmltemplate.HTML
}

type textEntry struct {
	Title       string
	DateRange   string
	Description string
	EventCount  string
}

// Render builds the digest for events covering w. Each event yields one
// card in the HTML body and one block in the text body.
func (r *Renderer) Render(events []Event, w Window) (*Digest, error) {
	cards := make([]htmlCard, 0, len(events))
	entries := make([]textEntry, 0, len(events))

	for i, ev := range events {
		desc, err := markdownHTML(ev.Description)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d description: %w", ErrRenderFailed, i, err)
		}
		note, err := markdownHTML(ev.Note)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d note: %w", ErrRenderFailed, i, err)
		}

		cards = append(cards, htmlCard{
			Title:       ev.Title,
			DateRange:   ev.DateRange,
			EventCount:  ev.EventCount,
			Description: desc,
			Source:      ev.Source,
			Note:        note,
		})
		entries = append(entries, textEntry{
			Title:       ev.Title,
			DateRange:   ev.DateRange,
			Description: sanitizer.StripHTML(ev.Description),
			EventCount:  ev.EventCount,
		})
	}

	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, map[string]any{
		"Heading": Heading,
		"Cards":   cards,
		"SentOn":  w.Start.Format(sentOnLayout),
		"Default": map[string]string{
			"Title":  DefaultHTMLTitle,
			"Date":   DefaultHTMLDate,
			"Source": DefaultHTMLSource,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: html: %w", ErrRenderFailed, err)
	}

	var text bytes.Buffer
	if err := textTmpl.Execute(&text, map[string]any{
		"Heading": Heading,
		"Entries": entries,
		"Default": map[string]string{
			"Title": DefaultTextTitle,
			"Date":  DefaultTextDate,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrRenderFailed, err)
	}

	return &Digest{
		Subject: SubjectPrefix + w.String(),
		HTML:    html.String(),
		Text:    text.String(),
		Window:  w,
		Events:  events,
	}, nil
}

// markdownHTML converts a markdown fragment and sanitizes the result.
func markdownHTML(src string) (htmltemplate.HTML, error) {
	out, err := mailer.Markdown(src)
	if err != nil {
		return "", err
	}
	// Content is sanitized before it is marked safe.
	return htmltemplate.HTML(sanitizer.EmailHTML(out)), nil //nolint:gosec
}
