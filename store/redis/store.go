// Package redisstore keeps the credential pair in a redis hash and fans
// changes out to other processes over pub/sub.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	DefaultPrefix  = "admin-client"
	DefaultProfile = "default"

	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldUpdatedAt    = "updated_at"

	EventSet    = "set"
	EventLogout = "logout"
)

// Client is the subset of *redis.Client the store issues commands on.
type Client interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Subscriber opens pub/sub subscriptions. *redis.Client implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type Store struct {
	client  Client
	profile string
	prefix  string
	origin  string
	logger  core.Logger
	now     func() time.Time

	mu        sync.RWMutex
	pair      core.CredentialPair
	known     bool
	nextID    int
	listeners map[int]func(core.CredentialPair)
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(client Client, profile string, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, core.NewError("redisstore: client is required", goerrors.CategoryBadInput, nil)
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	store := &Store{
		client:    client,
		profile:   profile,
		prefix:    DefaultPrefix,
		origin:    uuid.NewString(),
		now:       func() time.Time { return time.Now().UTC() },
		listeners: map[int]func(core.CredentialPair){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	store.logger = glog.Ensure(store.logger)
	return store, nil
}

// Key is the hash holding the pair, <prefix>:credentials:<profile>.
func (s *Store) Key() string {
	return s.prefix + ":credentials:" + s.profile
}

// Channel carries change events for the profile.
func (s *Store) Channel() string {
	return s.prefix + ":credentials:" + s.profile + ":events"
}

func (s *Store) Load(ctx context.Context) (core.CredentialPair, error) {
	values, err := s.client.HGetAll(ctx, s.Key()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.CredentialPair{}, core.WrapError(err, goerrors.CategoryExternal, "redisstore: load credentials", map[string]any{"profile": s.profile})
	}
	pair := core.CredentialPair{
		AccessToken:  strings.TrimSpace(values[fieldAccessToken]),
		RefreshToken: strings.TrimSpace(values[fieldRefreshToken]),
	}
	s.mu.Lock()
	s.pair, s.known = pair, true
	s.mu.Unlock()
	return pair, nil
}

func (s *Store) SetTokens(ctx context.Context, accessToken string, refreshToken string) error {
	pair := core.CredentialPair{
		AccessToken:  strings.TrimSpace(accessToken),
		RefreshToken: strings.TrimSpace(refreshToken),
	}
	if !pair.Complete() {
		return core.NewError("redisstore: access and refresh tokens are required", goerrors.CategoryBadInput, nil)
	}
	if err := s.client.HSet(ctx, s.Key(), map[string]interface{}{
		fieldAccessToken:  pair.AccessToken,
		fieldRefreshToken: pair.RefreshToken,
		fieldUpdatedAt:    s.now().Format(time.RFC3339Nano),
	}).Err(); err != nil {
		return core.WrapError(err, goerrors.CategoryExternal, "redisstore: store credentials", map[string]any{"profile": s.profile})
	}
	s.announce(ctx, EventSet)
	s.set(pair)
	return nil
}

func (s *Store) Logout(ctx context.Context) error {
	if err := s.client.Del(ctx, s.Key()).Err(); err != nil {
		return core.WrapError(err, goerrors.CategoryExternal, "redisstore: clear credentials", map[string]any{"profile": s.profile})
	}
	s.announce(ctx, EventLogout)
	s.set(core.CredentialPair{})
	return nil
}

func (s *Store) Snapshot() (core.CredentialPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.known
}

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

// Watch applies change events published by other processes until ctx is
// done. Events from this store are skipped since they were applied locally.
func (s *Store) Watch(ctx context.Context, subscriber Subscriber) error {
	if subscriber == nil {
		return core.NewError("redisstore: subscriber is required", goerrors.CategoryBadInput, nil)
	}
	pubsub := subscriber.Subscribe(ctx, s.Channel())
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return core.WrapError(err, goerrors.CategoryExternal, "redisstore: subscribe", map[string]any{"channel": s.Channel()})
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, message.Payload)
		}
	}
}

// HandleEvent applies one change event payload.
func (s *Store) HandleEvent(ctx context.Context, payload string) {
	event, ok := parseEvent(payload)
	if !ok || event.Profile != s.profile || event.Origin == s.origin {
		return
	}
	switch event.Event {
	case EventLogout:
		s.set(core.CredentialPair{})
	case EventSet:
		pair, err := s.Load(ctx)
		if err != nil {
			s.logger.Warn("redis credential reload failed", "profile", s.profile, "error", err)
			return
		}
		s.set(pair)
	}
}

type changeEvent struct {
	Event   string `json:"event"`
	Profile string `json:"profile"`
	Origin  string `json:"origin"`
	At      string `json:"at"`
}

// announce publishes the change without token values. Delivery is best
// effort; the hash stays the source of truth.
func (s *Store) announce(ctx context.Context, event string) {
	payload, err := json.Marshal(changeEvent{
		Event:   event,
		Profile: s.profile,
		Origin:  s.origin,
		At:      s.now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.Channel(), payload).Err(); err != nil {
		s.logger.Warn("redis credential event not published", "profile", s.profile, "event", event, "error", err)
	}
}

func parseEvent(payload string) (changeEvent, bool) {
	if !gjson.Valid(payload) {
		return changeEvent{}, false
	}
	parsed := gjson.Parse(payload)
	event := changeEvent{
		Event:   parsed.Get("event").String(),
		Profile: parsed.Get("profile").String(),
		Origin:  parsed.Get("origin").String(),
		At:      parsed.Get("at").String(),
	}
	if event.Event == "" || event.Profile == "" {
		return changeEvent{}, false
	}
	return event, true
}

func (s *Store) set(pair core.CredentialPair) {
	s.mu.Lock()
	s.pair, s.known = pair, true
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

// Dial connects to addr and verifies the server answers PING.
func Dial(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, core.NewError("redisstore: address is required", goerrors.CategoryBadInput, nil)
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.WrapError(err, goerrors.CategoryExternal, fmt.Sprintf("redisstore: ping %s", addr), nil)
	}
	return client, nil
}

var (
	_ core.CredentialStore       = (*Store)(nil)
	_ core.CredentialSnapshotter = (*Store)(nil)
	_ core.CredentialObservable  = (*Store)(nil)
	_ Client                     = (*redis.Client)(nil)
	_ Subscriber                 = (*redis.Client)(nil)
)
