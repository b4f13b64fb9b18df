package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// FetchManifest retrieves the ordered item list of one collection. The
// returned Manifest keeps the body as received in Raw. Failures wrap
// ErrManifest and are not logged here.
func (s *Service) FetchManifest(ctx context.Context, collectionID string) (*Manifest, error) {
	body, err := s.remote.FetchJSON(ctx, manifestPath(collectionID))
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %w", ErrManifest, collectionID, err)
	}

	m, err := DecodeManifest(body)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %w", ErrManifest, collectionID, err)
	}
	return m, nil
}

// DecodeManifest parses a manifest body. Any JSON value other than null is
// accepted: a non-object body has no name and no items. An items field that
// is present but not a list is an error. Items themselves are decoded later,
// one at a time, by DecodeItem.
func DecodeManifest(body []byte) (*Manifest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("empty manifest")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("decoding manifest: invalid JSON")
	}

	m := &Manifest{Raw: append(json.RawMessage(nil), body...)}
	if trimmed[0] != '{' {
		return m, nil
	}

	var fields struct {
		Name  text            `json:"name"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	m.Name = string(fields.Name)

	if len(fields.Items) > 0 && !bytes.Equal(fields.Items, []byte("null")) {
		if err := json.Unmarshal(fields.Items, &m.Items); err != nil {
			return nil, fmt.Errorf("decoding manifest items: %w", err)
		}
	}
	return m, nil
}

// DecodeItem decodes one manifest entry. Failures wrap ErrItem.
func DecodeItem(raw json.RawMessage) (Item, error) {
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return Item{}, fmt.Errorf("%w: decoding item: %w", ErrItem, err)
	}
	return item, nil
}

func manifestPath(collectionID string) string {
	return "/" + url.PathEscape(collectionID) + ".json"
}
