// Package digest builds the weekly tech events email.
//
// A run computes the Window (today through today + 7 days), asks a Source for
// the events in it and renders them:
//
//	w := digest.NewWindow(time.Now())
//	events, err := digest.Placeholder{}.Fetch(ctx, w)
//	d, err := digest.NewRenderer().Render(events, w)
//	// d.Subject == "🗓️ Tech Events This Week - Oct 14 - Oct 21"
//
// Placeholder is the default source and returns a single record that points
// the reader to the Webb newsletter. FileSource reads hand-maintained YAML,
// JSON or markdown files, and Combine merges several sources.
//
// Descriptions and notes are markdown. The HTML body renders them through
// goldmark and bluemonday; the text body keeps them verbatim.
package digest
