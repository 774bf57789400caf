package feed

// Source describes one feed to pull from.
type Source struct {
	Name string
	URL  string
}

// Item is one ingested unit. Items are immutable once produced by the
// fetch stage; entries missing a title or link are discarded during
// parsing and never become Items.
type Item struct {
	Title      string   `json:"title"`
	Link       string   `json:"link"`
	Summary    string   `json:"summary"`
	Published  string   `json:"published"`
	Source     string   `json:"source"`
	SourceName string   `json:"source_name"`
	Authors    []string `json:"authors,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}
