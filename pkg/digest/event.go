package digest

// Event is one entry of the digest. Every field is a display string and may
// be empty; renderers substitute their own defaults.
type Event struct {
	Title       string `yaml:"title" json:"title"`
	DateRange   string `yaml:"date_range" json:"date_range"`
	Description string `yaml:"description" json:"description"`
	EventCount  string `yaml:"event_count" json:"event_count"`
	Source      string `yaml:"source" json:"source"`
	Note        string `yaml:"note" json:"note"`
}

// Digest is the rendered email for one run.
type Digest struct {
	Subject string
	HTML    string
	Text    string
	Window  Window
	Events  []Event
}
