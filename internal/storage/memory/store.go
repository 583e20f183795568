// Package memory provides in-memory active-game and history stores. Games
// are kept as validated documents so callers never share state.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/storage"
)

// Store holds games and history records in maps.
type Store struct {
	codec *storage.Codec

	mu      sync.RWMutex
	games   map[string][]byte
	history map[string][]byte
	order   []string
}

// New creates an empty store.
func New(codec *storage.Codec) *Store {
	if codec == nil {
		codec = storage.MustCodec()
	}
	return &Store{
		codec:   codec,
		games:   make(map[string][]byte),
		history: make(map[string][]byte),
	}
}

// GetGame returns a fresh copy of the stored game.
func (s *Store) GetGame(ctx context.Context, id string) (*game.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, storage.ErrNotFound)
	}
	return s.codec.Decode(data)
}

// UpsertGame stores the game, replacing any previous version.
func (s *Store) UpsertGame(ctx context.Context, g *game.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.codec.Encode(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.games[g.ID] = data
	s.mu.Unlock()
	return nil
}

// DeleteGame removes a game. Deleting a missing game is not an error.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.games, id)
	s.mu.Unlock()
	return nil
}

// GameExists reports whether a game exists, optionally in a given status.
// An empty status matches any.
func (s *Store) GameExists(ctx context.Context, id string, status game.GameStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if status == "" {
		s.mu.RLock()
		_, ok := s.games[id]
		s.mu.RUnlock()
		return ok, nil
	}
	g, err := s.GetGame(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return g.Status == status, nil
}

// ListGames returns the ids of stored games in lexical order.
func (s *Store) ListGames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// RecordHistory archives a completed round once.
func (s *Store) RecordHistory(ctx context.Context, rec history.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history %s: %w", rec.GameID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history[rec.GameID]; ok {
		return fmt.Errorf("history %s: %w", rec.GameID, storage.ErrAlreadyExists)
	}
	s.history[rec.GameID] = data
	s.order = append(s.order, rec.GameID)
	return nil
}

// GetHistory returns one archived round.
func (s *Store) GetHistory(ctx context.Context, gameID string) (*history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.history[gameID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("history %s: %w", gameID, storage.ErrNotFound)
	}
	var rec history.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal history %s: %w", gameID, err)
	}
	return &rec, nil
}

// ListHistory returns archived rounds in archival order.
func (s *Store) ListHistory(ctx context.Context) ([]history.Record, error) {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]history.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetHistory(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}
