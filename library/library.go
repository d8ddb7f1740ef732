// Package library keeps the client's own memes, its generation history and
// its favorites.
//
// The "mine" collection is the single source of truth for meme state. The
// favorites view is derived from it on every read, so removing or updating
// a meme is reflected there without bookkeeping. History is an append-only
// log of generated memes capped at HistoryLimit entries; it keeps memes that
// were later removed.
package library

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"meme-service/metrics"
	"meme-service/model"
)

// HistoryLimit is the number of generation history entries kept.
const HistoryLimit = 100

// Snapshot is the persisted form of a library.
type Snapshot struct {
	Mine    []model.Meme `json:"mine"`
	History []model.Meme `json:"history"`
	// FavoriteOrder holds favorited ids, most recently favorited first.
	FavoriteOrder []int64 `json:"favoriteOrder"`
}

// Persister loads and saves library snapshots.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// Stats summarises the library.
type Stats struct {
	TotalCount    int `json:"totalCount"`
	FavoriteCount int `json:"favoriteCount"`
	GenerateCount int `json:"generateCount"`
}

// Store is a concurrency-safe library. Every mutation is followed by a
// snapshot save through the persister.
type Store struct {
	mu       sync.RWMutex
	mine     []model.Meme
	history  []model.Meme
	favOrder []int64

	persister Persister
	logger    zerolog.Logger
}

// New returns an empty store that is not persisted.
func New(logger zerolog.Logger) *Store {
	return &Store{mine: []model.Meme{}, history: []model.Meme{}, logger: logger}
}

// Open loads a store from p.
func Open(ctx context.Context, p Persister, logger zerolog.Logger) (*Store, error) {
	snap, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	s := New(logger)
	s.persister = p
	if snap.Mine != nil {
		s.mine = snap.Mine
	}
	if snap.History != nil {
		s.history = snap.History
	}
	s.favOrder = snap.FavoriteOrder
	s.observe()
	logger.Info().
		Int("mine", len(s.mine)).
		Int("history", len(s.history)).
		Msg("Library loaded")
	return s, nil
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.mine, func(m model.Meme) bool { return m.ID == id })
}

// next returns a copy of the current state for a mutation to edit. Callers
// hold s.mu.
func (s *Store) next() Snapshot {
	return Snapshot{
		Mine:          slices.Clone(s.mine),
		History:       slices.Clone(s.history),
		FavoriteOrder: slices.Clone(s.favOrder),
	}
}

// commit persists next and makes it the current state. When saving fails
// the current state is left untouched. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next Snapshot) error {
	if s.persister != nil {
		if err := s.persister.Save(ctx, next); err != nil {
			s.logger.Error().Err(err).Msg("Failed to persist library")
			return fmt.Errorf("save library: %w", err)
		}
	}
	s.mine, s.history, s.favOrder = next.Mine, next.History, next.FavoriteOrder
	s.observe()
	return nil
}

func (s *Store) observe() {
	metrics.LibrarySize.WithLabelValues("mine").Set(float64(len(s.mine)))
	metrics.LibrarySize.WithLabelValues("history").Set(float64(len(s.history)))
	metrics.LibrarySize.WithLabelValues("favorites").Set(float64(len(s.favoritesLocked())))
}

// Add puts m at the front of the library and the generation history. It is
// a no-op when a meme with the same id is already present.
func (s *Store) Add(ctx context.Context, m model.Meme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(m.ID) >= 0 {
		return nil
	}
	n := s.next()
	n.Mine = slices.Insert(n.Mine, 0, m)
	n.History = slices.Insert(n.History, 0, m)
	if len(n.History) > HistoryLimit {
		n.History = n.History[:HistoryLimit]
	}
	if m.IsFavorite {
		n.FavoriteOrder = slices.Insert(n.FavoriteOrder, 0, m.ID)
	}
	return s.commit(ctx, n)
}

// Remove deletes the meme from the library. History keeps its entry.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	n := s.next()
	n.Mine = slices.Delete(n.Mine, i, i+1)
	n.FavoriteOrder = slices.DeleteFunc(n.FavoriteOrder, func(v int64) bool { return v == id })
	return s.commit(ctx, n)
}

// Update applies u to the meme with the given id, in the library and in
// its history entries. Unknown ids are ignored.
func (s *Store) Update(ctx context.Context, id int64, u model.MemeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	n := s.next()
	u.Apply(&n.Mine[i])
	for j := range n.History {
		if n.History[j].ID == id {
			u.Apply(&n.History[j])
		}
	}
	return s.commit(ctx, n)
}

// ToggleFavorite sets the favorite flag of a library meme. Unknown ids are
// ignored.
func (s *Store) ToggleFavorite(ctx context.Context, id int64, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	n := s.next()
	n.Mine[i].IsFavorite = on
	for j := range n.History {
		if n.History[j].ID == id {
			n.History[j].IsFavorite = on
		}
	}
	n.FavoriteOrder = slices.DeleteFunc(n.FavoriteOrder, func(v int64) bool { return v == id })
	if on {
		n.FavoriteOrder = slices.Insert(n.FavoriteOrder, 0, id)
	}
	return s.commit(ctx, n)
}

// Mine returns the library, newest first.
func (s *Store) Mine() []model.Meme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mine)
}

// History returns the generation history, newest first.
func (s *Store) History() []model.Meme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Favorites returns the favorited library memes, most recently favorited
// first.
func (s *Store) Favorites() []model.Meme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favoritesLocked()
}

func (s *Store) favoritesLocked() []model.Meme {
	out := []model.Meme{}
	seen := make(map[int64]bool, len(s.favOrder))
	for _, id := range s.favOrder {
		if i := s.indexOf(id); i >= 0 && s.mine[i].IsFavorite && !seen[id] {
			out = append(out, s.mine[i])
			seen[id] = true
		}
	}
	// favorites restored without an order entry follow in library order
	for _, m := range s.mine {
		if m.IsFavorite && !seen[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// ClearMine empties the library. History is kept.
func (s *Store) ClearMine(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next()
	n.Mine = []model.Meme{}
	n.FavoriteOrder = nil
	return s.commit(ctx, n)
}

// ClearHistory empties the generation history.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next()
	n.History = []model.Meme{}
	return s.commit(ctx, n)
}

// ClearFavorites unsets the favorite flag on every library meme.
func (s *Store) ClearFavorites(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next()
	for i := range n.Mine {
		n.Mine[i].IsFavorite = false
	}
	for i := range n.History {
		n.History[i].IsFavorite = false
	}
	n.FavoriteOrder = nil
	return s.commit(ctx, n)
}

// Stats counts the library, its favorites and its history.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		TotalCount:    len(s.mine),
		FavoriteCount: len(s.favoritesLocked()),
		GenerateCount: len(s.history),
	}
}
