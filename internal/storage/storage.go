package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTokenNotFound is returned when no value is stored under a key
var ErrTokenNotFound = errors.New("session token not found")

// Kind names a token store backend
type Kind string

const (
	KindMemory    Kind = "memory"
	KindRedis     Kind = "redis"
	KindFirestore Kind = "firestore"
)

// Store is client-side session storage: string values under string keys,
// optionally expiring. A ttl of zero means the value never expires.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Options selects and configures a backend for Open
type Options struct {
	Kind      Kind
	KeyPrefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Firestore FirestoreOptions
}

// Open creates the store described by opts
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemoryStore(opts.KeyPrefix), nil
	case KindRedis:
		return NewRedisStoreFromOptions(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.KeyPrefix)
	case KindFirestore:
		fsOpts := opts.Firestore
		if fsOpts.KeyPrefix == "" {
			fsOpts.KeyPrefix = opts.KeyPrefix
		}
		return NewFirestoreStore(ctx, fsOpts)
	default:
		return nil, fmt.Errorf("unsupported storage kind: %s", opts.Kind)
	}
}

// Has reports whether a value exists under key. Lookup failures other than
// ErrTokenNotFound are returned.
func Has(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrTokenNotFound):
		return false, nil
	default:
		return false, err
	}
}
