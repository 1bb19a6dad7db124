// Package memory provides an observable in-process credential store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-admin-client/core"
)

type Store struct {
	mu        sync.RWMutex
	pair      core.CredentialPair
	listeners map[int]func(core.CredentialPair)
	nextID    int
}

func New(initial core.CredentialPair) *Store {
	return &Store{
		pair:      initial,
		listeners: map[int]func(core.CredentialPair){},
	}
}

func (s *Store) Load(context.Context) (core.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

// Snapshot is always authoritative for an in-memory store.
func (s *Store) Snapshot() (core.CredentialPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, true
}

func (s *Store) SetTokens(_ context.Context, accessToken string, refreshToken string) error {
	s.set(core.CredentialPair{
		AccessToken:  strings.TrimSpace(accessToken),
		RefreshToken: strings.TrimSpace(refreshToken),
	})
	return nil
}

func (s *Store) Logout(context.Context) error {
	s.set(core.CredentialPair{})
	return nil
}

// Subscribe registers listener for pair changes. Listeners run after the
// store lock is released, in registration order.
func (s *Store) Subscribe(listener func(core.CredentialPair)) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) set(pair core.CredentialPair) {
	s.mu.Lock()
	s.pair = pair
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(core.CredentialPair), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(pair)
	}
}

var (
	_ core.CredentialStore       = (*Store)(nil)
	_ core.CredentialSnapshotter = (*Store)(nil)
	_ core.CredentialObservable  = (*Store)(nil)
)
