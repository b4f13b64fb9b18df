package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Item types reported by the collection service.
const (
	TypeImage = "image"
	TypeFile  = "file"
	TypeVideo = "video"
	TypeAudio = "audio"
	TypeLink  = "link"
)

// ID is a remote identifier. The service serializes ids as JSON numbers in
// some payloads and as strings in others; both decode to the same ID.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Collection is a remote collection the user can see.
type Collection struct {
	ID   string
	Name string
	URL  string
}

// ActivityEvent is one record of the activity feed. Only the collection
// projection is decoded; everything else is ignored.
type ActivityEvent struct {
	CollectionID   ID     `json:"collection_id"`
	CollectionName string `json:"collection_name"`
	CollectionURL  string `json:"collection_url"`
}

// Item is one entry of a collection manifest.
type Item struct {
	ID        ID     `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Link      string `json:"link"`
	Extension string `json:"extension"`
	MIME      string `json:"mime"`
}

// UnmarshalJSON decodes an item leniently: text fields holding a number keep
// its literal, and fields holding any other non-string value are left empty.
// Only a non-object item or an unusable id is an error.
func (i *Item) UnmarshalJSON(b []byte) error {
	var w struct {
		ID        ID   `json:"id"`
		Type      text `json:"type"`
		Name      text `json:"name"`
		Content   text `json:"content"`
		URL       text `json:"url"`
		Link      text `json:"link"`
		Extension text `json:"extension"`
		MIME      text `json:"mime"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*i = Item{
		ID:        w.ID,
		Type:      string(w.Type),
		Name:      string(w.Name),
		Content:   string(w.Content),
		URL:       string(w.URL),
		Link:      string(w.Link),
		Extension: string(w.Extension),
		MIME:      string(w.MIME),
	}
	return nil
}

// text is a string field that tolerates other JSON value kinds.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*t = text(b)
	default:
		*t = ""
	}
	return nil
}

// IsBinary reports whether the item materializes as a downloaded file.
func (i Item) IsBinary() bool {
	switch i.Type {
	case TypeImage, TypeFile, TypeVideo, TypeAudio:
		return true
	}
	return false
}

// SourceURL returns the URL the item's payload is fetched from: the content
// URL when present, else the item URL.
func (i Item) SourceURL() string {
	if i.Content != "" {
		return i.Content
	}
	return i.URL
}

// Manifest is the decoded response for one collection. Items are kept
// undecoded so one malformed entry cannot spoil the rest; DecodeItem turns an
// entry into an Item. Raw holds the body exactly as received.
type Manifest struct {
	Name  string
	Items []json.RawMessage
	Raw   json.RawMessage
}
