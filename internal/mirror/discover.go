package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const activityPath = "/activity.json"

// trailingIDPattern matches a URL or path whose last segment is numeric,
// e.g. "https://me.dropmark.com/12345" or ".../12345/?view=grid".
var trailingIDPattern = regexp.MustCompile(`/(\d+)/?(?:[?#].*)?$`)

// DiscoverCollections derives the collections the user can see from the
// activity feed. Collections are keyed by id; when several events name the
// same collection, the last one's values win while the first one's position
// is kept. A failed fetch degrades to an empty result.
func (s *Service) DiscoverCollections(ctx context.Context) []Collection {
	body, err := s.remote.FetchJSON(ctx, activityPath)
	if err != nil {
		s.logger.Warn("activity feed unavailable", "error", fmt.Errorf("%w: %w", ErrDiscovery, err))
		return []Collection{}
	}

	var events []ActivityEvent
	if err := json.Unmarshal(body, &events); err != nil {
		s.logger.Warn("activity feed unreadable", "error", fmt.Errorf("%w: decoding activity: %w", ErrDiscovery, err))
		return []Collection{}
	}

	collections := collectionsFromActivity(events)
	s.logger.Debug("collections discovered", "events", len(events), "collections", len(collections))
	return collections
}

// collectionsFromActivity upserts one Collection per collection id.
func collectionsFromActivity(events []ActivityEvent) []Collection {
	index := make(map[string]int)
	collections := []Collection{}

	for _, ev := range events {
		if ev.CollectionID == "" || ev.CollectionName == "" {
			continue
		}
		c := Collection{
			ID:   string(ev.CollectionID),
			Name: ev.CollectionName,
			URL:  ev.CollectionURL,
		}
		if i, ok := index[c.ID]; ok {
			collections[i] = c
			continue
		}
		index[c.ID] = len(collections)
		collections = append(collections, c)
	}

	return collections
}

// ParseCollectionID extracts a collection identifier from user input: either
// a bare identifier or a URL ending in a numeric path segment.
func ParseCollectionID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty collection id", ErrManualResolution)
	}
	if m := trailingIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	return raw, nil
}

// ResolveManual turns a raw id or URL into a Collection, validating that its
// manifest can be fetched. Nothing is written to disk.
func (s *Service) ResolveManual(ctx context.Context, raw string) (Collection, error) {
	id, err := ParseCollectionID(raw)
	if err != nil {
		return Collection{}, err
	}

	manifest, err := s.FetchManifest(ctx, id)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: collection %s: %w", ErrManualResolution, id, err)
	}

	name := manifest.Name
	if name == "" {
		name = "Collection-" + id
	}

	return Collection{
		ID:   id,
		Name: name,
		URL:  s.baseURL + "/" + id,
	}, nil
}
