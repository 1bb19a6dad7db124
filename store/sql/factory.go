package sqlstore

import (
	"fmt"
	"strings"
	"sync"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the SQL backed stores on one bun database.
type RepositoryFactory struct {
	db *bun.DB

	mu                  sync.Mutex
	credentialStores    map[string]*CredentialStore
	rateLimitStateStore *RateLimitStateStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{credentialStores: map[string]*CredentialStore{}}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores binds the factory to a *bun.DB or anything exposing DB() *bun.DB.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.rateLimitStateStore != nil {
		return nil
	}
	store, err := NewRateLimitStateStore(f.db)
	if err != nil {
		return err
	}
	f.rateLimitStateStore = store
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

// CredentialStore returns the store for profile, creating it on first use.
func (f *RepositoryFactory) CredentialStore(profile string) (*CredentialStore, error) {
	if f == nil || f.db == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is not configured")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credentialStores == nil {
		f.credentialStores = map[string]*CredentialStore{}
	}
	if store, ok := f.credentialStores[profile]; ok {
		return store, nil
	}
	store, err := NewCredentialStore(f.db, profile)
	if err != nil {
		return nil, err
	}
	f.credentialStores[profile] = store
	return store, nil
}

func (f *RepositoryFactory) RateLimitStateStore() *RateLimitStateStore {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rateLimitStateStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
