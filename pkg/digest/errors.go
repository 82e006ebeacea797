package digest

import "errors"

var (
	// ErrSourceNotFound indicates the events file does not exist.
	ErrSourceNotFound = errors.New("digest: events source not found")

	// ErrInvalidSource indicates the events file could not be decoded.
	ErrInvalidSource = errors.New("digest: invalid events source")

	// ErrUnsupportedFormat indicates an events file extension with no decoder.
	ErrUnsupportedFormat = errors.New("digest: unsupported events file format")

	// ErrInvalidFrontmatter indicates malformed YAML frontmatter in a markdown event.
	ErrInvalidFrontmatter = errors.New("digest: invalid frontmatter")

	// ErrRenderFailed indicates the digest templates failed to execute.
	ErrRenderFailed = errors.New("digest: failed to render")
)
