package domain

// Item is learning content supplied by an external item source. The engine
// only stores its ID and never inspects the rest.
type Item struct {
	ID     string            `json:"id"`
	Text   string            `json:"text"`
	Answer string            `json:"answer,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}
