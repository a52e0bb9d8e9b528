package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dgellow/authredirect/internal/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreOptions configures a FirestoreStore
type FirestoreOptions struct {
	ProjectID       string
	Database        string
	Collection      string
	CredentialsFile string
	KeyPrefix       string
}

// FirestoreStore keeps one document per key in a Firestore collection.
// Expired documents read as absent; nothing deletes them eagerly.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	prefix     string
	now        func() time.Time
}

var _ Store = (*FirestoreStore)(nil)

// TokenDoc is the Firestore document layout
type TokenDoc struct {
	Value     string    `firestore:"value"`
	ExpiresAt time.Time `firestore:"expires_at,omitempty"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreStore creates a Firestore client for opts
func NewFirestoreStore(ctx context.Context, opts FirestoreOptions) (*FirestoreStore, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	var client *firestore.Client
	var err error
	if opts.Database != "" && opts.Database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, opts.ProjectID, opts.Database, clientOpts...)
	} else {
		client, err = firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogDebugWithFields("storage", "Firestore store ready", map[string]any{
		"project":    opts.ProjectID,
		"collection": opts.Collection,
	})

	return &FirestoreStore{
		client:     client,
		collection: opts.Collection,
		prefix:     opts.KeyPrefix,
		now:        time.Now,
	}, nil
}

// docID maps a key to a valid document ID; '/' is reserved by Firestore.
func (s *FirestoreStore) docID(key string) string {
	return strings.ReplaceAll(s.prefix+key, "/", "_")
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (string, error) {
	doc, err := s.client.Collection(s.collection).Doc(s.docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to get token from Firestore: %w", err)
	}

	var tokenDoc TokenDoc
	if err := doc.DataTo(&tokenDoc); err != nil {
		return "", fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if tokenDoc.expired(s.now()) {
		return "", ErrTokenNotFound
	}
	return tokenDoc.Value, nil
}

func (s *FirestoreStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now()
	tokenDoc := TokenDoc{
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		tokenDoc.ExpiresAt = now.Add(ttl)
	}

	if _, err := s.client.Collection(s.collection).Doc(s.docID(key)).Set(ctx, tokenDoc); err != nil {
		return fmt.Errorf("failed to store token in Firestore: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(s.docID(key)).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete token from Firestore: %w", err)
	}
	return nil
}

// Close releases the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (d TokenDoc) expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}
