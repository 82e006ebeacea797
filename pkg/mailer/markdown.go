package mailer

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
)

var (
	markdownOnce sync.Once
	markdownMD   goldmark.Markdown
)

// Markdown converts a markdown fragment to HTML. Raw HTML in the source is
// omitted. Blank input yields an empty string.
func Markdown(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}

	markdownOnce.Do(func() {
		markdownMD = goldmark.New(goldmark.WithExtensions(NewButtonExtension()))
	})

	var buf bytes.Buffer
	if err := markdownMD.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("%w: markdown: %v", ErrRenderFailed, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
