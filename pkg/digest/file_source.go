package digest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource reads events maintained by hand in a file.
//
// Supported formats, chosen by extension:
//   - .yaml, .yml, .json: a list of events, or a mapping with an "events" list
//   - .md: a single event as YAML frontmatter, the body is the description
//
// Events without a date range get the window's.
type FileSource struct {
	fsys fs.FS
	name string
}

// NewFileSource reads name from fsys on every Fetch.
func NewFileSource(fsys fs.FS, name string) *FileSource {
	return &FileSource{fsys: fsys, name: name}
}

// OpenFile returns a FileSource for a path on the local filesystem.
func OpenFile(p string) *FileSource {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return NewFileSource(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context, w Window) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := fs.ReadFile(s.fsys, s.name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, s.name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSource, s.name, err)
	}

	var events []Event
	switch ext := strings.ToLower(path.Ext(s.name)); ext {
	case ".yaml", ".yml", ".json":
		events, err = decodeEventList(content)
	case ".md", ".markdown":
		var ev Event
		ev, err = parseMarkdownEvent(content)
		events = []Event{ev}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, s.name, err)
	}

	for i := range events {
		if events[i].DateRange == "" {
			events[i].DateRange = w.String()
		}
	}
	return events, nil
}

// decodeEventList accepts a top-level sequence or {events: [...]}.
// JSON is decoded by the YAML parser as well.
func decodeEventList(content []byte) ([]Event, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var events []Event
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&events); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapped struct {
			Events []Event `yaml:"events"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, err
		}
		events = wrapped.Events
	default:
		return nil, fmt.Errorf("line %d: expected a list of events", root.Line)
	}
	return events, nil
}
