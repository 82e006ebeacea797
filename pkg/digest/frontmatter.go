package digest

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var frontmatterDelimiter = []byte("---")

// parseMarkdownEvent reads one event from a markdown document. The YAML
// frontmatter holds the event fields, the body becomes the description
// unless the frontmatter sets one.
func parseMarkdownEvent(content []byte) (Event, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	if !bytes.HasPrefix(content, frontmatterDelimiter) {
		return Event{Description: string(bytes.TrimSpace(content))}, nil
	}

	rest := bytes.TrimLeft(bytes.TrimPrefix(content, frontmatterDelimiter), "\r\n")
	if len(rest) == 0 {
		return Event{}, fmt.Errorf("%w: no content after opening delimiter", ErrInvalidFrontmatter)
	}

	end, bodyStart := closingDelimiter(rest)
	if end == -1 {
		return Event{}, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	var ev Event
	if meta := rest[:end]; len(bytes.TrimSpace(meta)) > 0 {
		if err := yaml.Unmarshal(meta, &ev); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	if ev.Description == "" {
		ev.Description = string(bytes.TrimSpace(rest[bodyStart:]))
	}
	return ev, nil
}

// closingDelimiter finds the first line of b that is exactly "---" and
// returns its offset and the offset of the line after it, or -1, -1.
func closingDelimiter(b []byte) (start, next int) {
	for off := 0; off < len(b); off = next {
		line := b[off:]
		next = len(b)
		if i := bytes.IndexByte(line, '\n'); i != -1 {
			line = line[:i]
			next = off + i + 1
		}
		if bytes.Equal(bytes.TrimRight(line, "\r \t"), frontmatterDelimiter) {
			return off, next
		}
	}
	return -1, -1
}
