package tracker

import (
	"context"
	"fmt"

	"competitoriq-engine/internal/backend"
	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/events"

	"go.uber.org/zap"
)

// EditSession is the edit dialog's working copy. It deep-copies the target
// on open and never touches the cached list; only a successful save (and
// the refetch it triggers) makes the edits visible.
type EditSession struct {
	t *Tracker

	ID          string
	Name        string
	Homepage    string
	Fields      map[string]string
	CustomLinks []string

	closed bool
}

// BeginEdit opens a session for the competitor with the given id.
func (t *Tracker) BeginEdit(id string) (*EditSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range t.competitors {
		if c.ID == id {
			cp := c.Clone()
			if cp.Fields == nil {
				cp.Fields = make(map[string]string, len(domain.FieldKeys))
			}
			return &EditSession{
				t:           t,
				ID:          cp.ID,
				Name:        cp.Name,
				Homepage:    cp.Homepage,
				Fields:      cp.Fields,
				CustomLinks: cp.CustomLinks,
			}, nil
		}
	}
	return nil, fmt.Errorf("competitor %q not found", id)
}

func (s *EditSession) SetName(name string) { s.Name = name }

func (s *EditSession) SetHomepage(url string) { s.Homepage = url }

// SetField writes one of the fixed link slots.
func (s *EditSession) SetField(key, url string) error {
	for _, k := range domain.FieldKeys {
		if k == key {
			s.Fields[key] = url
			return nil
		}
	}
	return fmt.Errorf("unknown link field %q", key)
}

// AddCustomLink appends an empty slot. Past the cap it is a no-op and
// reports false.
func (s *EditSession) AddCustomLink() bool {
	if len(s.CustomLinks) >= domain.MaxCustomLinks {
		return false
	}
	s.CustomLinks = append(s.CustomLinks, "")
	return true
}

// RemoveCustomLink may empty the list entirely; out-of-range is a no-op.
func (s *EditSession) RemoveCustomLink(i int) {
	if i < 0 || i >= len(s.CustomLinks) {
		return
	}
	s.CustomLinks = append(s.CustomLinks[:i], s.CustomLinks[i+1:]...)
}

// ReplaceCustomLinks swaps in a whole list, truncated at the cap. The edit
// dialog sends its final state in one shot.
func (s *EditSession) ReplaceCustomLinks(links []string) {
	if len(links) > domain.MaxCustomLinks {
		links = links[:domain.MaxCustomLinks]
	}
	s.CustomLinks = append([]string(nil), links...)
}

func (s *EditSession) SetCustomLink(i int, url string) {
	if i < 0 || i >= len(s.CustomLinks) {
		return
	}
	s.CustomLinks[i] = url
}

func (s *EditSession) Closed() bool { return s.closed }

// Save patches the competitor, then refetches the list and closes the
// session. On failure the session stays open with the edits intact.
func (s *EditSession) Save(ctx context.Context) error {
	if s.closed {
		return &backend.ValidationError{Msg: "edit session already saved"}
	}

	t := s.t
	t.mu.Lock()
	t.saving = true
	t.mu.Unlock()

	err := t.be.UpdateCompetitor(ctx, backend.UpdateRequest{
		ID:          s.ID,
		Name:        s.Name,
		Homepage:    s.Homepage,
		Fields:      s.Fields,
		CustomLinks: s.CustomLinks,
	})

	t.mu.Lock()
	t.saving = false
	t.mu.Unlock()

	if err != nil {
		return err
	}

	s.closed = true
	t.publish(events.TypeCompetitorUpdated, map[string]any{"id": s.ID})
	if rerr := t.Refresh(ctx); rerr != nil {
		t.log.Warn("list refetch after update failed", zap.Error(rerr))
	}
	return nil
}
