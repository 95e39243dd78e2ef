package storage

import (
	"context"
	"errors"

	"newsbot/internal/models"
)

// ErrNotFound is returned when no published post exists for a message id
var ErrNotFound = errors.New("published post not found")

// Storage defines the interface for the durable published-post store
type Storage interface {
	// SavePost stores the record under the channel message id, replacing any previous one
	SavePost(ctx context.Context, post models.PublishedPost) error

	// GetPost returns the record for a channel message id or ErrNotFound
	GetPost(ctx context.Context, messageID int) (*models.PublishedPost, error)

	// DeletePost removes the record for a channel message id. Deleting a missing record is not an error.
	DeletePost(ctx context.Context, messageID int) error

	// ListPosts returns all records ordered by message id
	ListPosts(ctx context.Context) ([]models.PublishedPost, error)

	// ReservePostID persists id as handed out to a pending post
	ReservePostID(ctx context.Context, id int64) error

	// MaxPostID returns the highest post id ever reserved or published, 0 if none
	MaxPostID(ctx context.Context) (int64, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
