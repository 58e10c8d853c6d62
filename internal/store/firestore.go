package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/averlon/fieldatlas/internal/conf"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore persists species documents in a Firestore collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore creates a Firestore-backed store. Credentials come from the
// configured service account file, or application default credentials when
// none is set.
func NewFirestore(ctx context.Context, config conf.FirestoreSettings) (*FirestoreStore, error) {
	if config.Project == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	collection := config.Collection
	if collection == "" {
		collection = "species"
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, config.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client, collection: collection}, nil
}

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, id string) (map[string]any, bool, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return snap.Data(), true, nil
}

// SetMerge implements Store. firestore.MergeAll gives the overlay
// semantics: unspecified fields on the stored document survive the write.
func (s *FirestoreStore) SetMerge(ctx context.Context, id string, fields map[string]any) error {
	_, err := s.client.Collection(s.collection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
