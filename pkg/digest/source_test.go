package digest_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/techdigest/pkg/digest"
)

var testWindow = digest.NewWindow(time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC))

func TestPlaceholder_Fetch(t *testing.T) {
	t.Parallel()

	events, err := digest.Placeholder{}.Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Webb Tech Events", ev.Title)
	assert.Equal(t, "Oct 14 - Oct 21", ev.DateRange)
	assert.Equal(t, digest.PlaceholderDescription, ev.Description)
	assert.Equal(t, "40+ Tech Events", ev.EventCount)
	assert.Equal(t, "Webb Newsletter", ev.Source)
	assert.Equal(t, "Check your LinkedIn or newsletter subscription for the full list", ev.Note)
}

func TestFileSource_YAML(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"events.yaml": {Data: []byte(`
- title: Berlin AI Meetup
  date_range: Oct 16
  description: Talks on **agents**
  event_count: 3 talks
  source: meetup.com
- title: Founders Breakfast
`)},
	}

	events, err := digest.NewFileSource(fsys, "events.yaml").Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Berlin AI Meetup", events[0].Title)
	assert.Equal(t, "Oct 16", events[0].DateRange)
	assert.Equal(t, "3 talks", events[0].EventCount)
	assert.Equal(t, "Founders Breakfast", events[1].Title)
	assert.Equal(t, "Oct 14 - Oct 21", events[1].DateRange, "missing date range inherits the window")
}

func TestFileSource_JSONWrapped(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"events.json": {Data: []byte(`{"events": [{"title": "Demo Day", "source": "YC"}]}`)},
	}

	events, err := digest.NewFileSource(fsys, "events.json").Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Demo Day", events[0].Title)
	assert.Equal(t, "YC", events[0].Source)
}

func TestFileSource_Markdown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"week.md": {Data: []byte("---\ntitle: Hackathon\nevent_count: 48h\n---\n\nBuild something with **friends**.\n")},
	}

	events, err := digest.NewFileSource(fsys, "week.md").Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Hackathon", events[0].Title)
	assert.Equal(t, "48h", events[0].EventCount)
	assert.Equal(t, "Build something with **friends**.", events[0].Description)
}

func TestFileSource_MarkdownDashesInsideFrontmatter(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"launch.md": {Data: []byte("---\r\ntitle: Pre---launch Demo Night\r\n---\r\nPitches first.\r\n\r\n---\r\n\r\nDrinks after.\r\n")},
	}

	events, err := digest.NewFileSource(fsys, "launch.md").Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Pre---launch Demo Night", events[0].Title)
	assert.Equal(t, "Pitches first.\r\n\r\n---\r\n\r\nDrinks after.", events[0].Description)
}

func TestFileSource_Errors(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"bad.yaml":     {Data: []byte("- title: [unclosed")},
		"scalar.yaml":  {Data: []byte("just a string")},
		"events.csv":   {Data: []byte("title\nx\n")},
		"broken.md":    {Data: []byte("---\ntitle: x\n")},
		"badmeta.md":   {Data: []byte("---\ntitle: [\n---\nbody")},
		"wrongtype.md": {Data: []byte("---\n- a\n- b\n---\nbody")},
	}

	tests := []struct {
		name string
		file string
		want error
	}{
		{name: "missing file", file: "nope.yaml", want: digest.ErrSourceNotFound},
		{name: "malformed yaml", file: "bad.yaml", want: digest.ErrInvalidSource},
		{name: "scalar document", file: "scalar.yaml", want: digest.ErrInvalidSource},
		{name: "unsupported extension", file: "events.csv", want: digest.ErrUnsupportedFormat},
		{name: "unterminated frontmatter", file: "broken.md", want: digest.ErrInvalidFrontmatter},
		{name: "malformed frontmatter", file: "badmeta.md", want: digest.ErrInvalidFrontmatter},
		{name: "frontmatter not a mapping", file: "wrongtype.md", want: digest.ErrInvalidFrontmatter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := digest.NewFileSource(fsys, tt.file).Fetch(context.Background(), testWindow)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFileSource_EmptyFile(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"events.yml": {Data: []byte("")}}
	events, err := digest.NewFileSource(fsys, "events.yml").Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileSource_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := digest.NewFileSource(fstest.MapFS{}, "events.yaml").Fetch(ctx, testWindow)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCombine_PreservesOrder(t *testing.T) {
	t.Parallel()

	slow := digest.SourceFunc(func(ctx context.Context, _ digest.Window) ([]digest.Event, error) {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []digest.Event{{Title: "first"}}, nil
	})
	fast := digest.SourceFunc(func(context.Context, digest.Window) ([]digest.Event, error) {
		return []digest.Event{{Title: "second"}, {Title: "third"}}, nil
	})

	events, err := digest.Combine(slow, nil, fast).Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].Title)
	assert.Equal(t, "second", events[1].Title)
	assert.Equal(t, "third", events[2].Title)
}

func TestCombine_FirstErrorCancels(t *testing.T) {
	t.Parallel()

	boom := errors.New("feed unavailable")
	var canceled atomic.Bool

	failing := digest.SourceFunc(func(context.Context, digest.Window) ([]digest.Event, error) {
		return nil, boom
	})
	waiting := digest.SourceFunc(func(ctx context.Context, _ digest.Window) ([]digest.Event, error) {
		<-ctx.Done()
		canceled.Store(true)
		return nil, ctx.Err()
	})

	_, err := digest.Combine(waiting, failing).Fetch(context.Background(), testWindow)
	require.ErrorIs(t, err, boom)
	assert.True(t, canceled.Load())
}

func TestCombine_Empty(t *testing.T) {
	t.Parallel()

	events, err := digest.Combine().Fetch(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Empty(t, events)
}
