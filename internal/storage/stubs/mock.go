package stubs

import (
	"context"
	"sort"
	"sync"

	"newsbot/internal/models"
	"newsbot/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu    sync.RWMutex
	posts map[int]models.PublishedPost

	// SaveErr, DeleteErr and ReserveErr, when set, are returned by the matching write
	SaveErr    error
	DeleteErr  error
	ReserveErr error

	reserved int64

	saves   int
	deletes int
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		posts: make(map[int]models.PublishedPost),
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// SavePost stores a published post under its channel message id
func (m *MockDB) SavePost(ctx context.Context, post models.PublishedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.posts[post.MessageID] = post
	m.saves++
	return nil
}

// GetPost returns a copy of the stored post
func (m *MockDB) GetPost(ctx context.Context, messageID int) (*models.PublishedPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	post, ok := m.posts[messageID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &post, nil
}

// DeletePost removes a post
func (m *MockDB) DeletePost(ctx context.Context, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.posts, messageID)
	m.deletes++
	return nil
}

// ListPosts returns all posts sorted by message id
func (m *MockDB) ListPosts(ctx context.Context) ([]models.PublishedPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]models.PublishedPost, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, p)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].MessageID < posts[j].MessageID
	})

	return posts, nil
}

// ReservePostID records the highest reserved post id
func (m *MockDB) ReservePostID(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReserveErr != nil {
		return m.ReserveErr
	}
	if id > m.reserved {
		m.reserved = id
	}
	return nil
}

// MaxPostID returns the highest post id reserved or stored
func (m *MockDB) MaxPostID(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	maxID := m.reserved
	for _, p := range m.posts {
		if p.PostID > maxID {
			maxID = p.PostID
		}
	}
	return maxID, nil
}

// Writes returns how many successful saves and deletes were made
func (m *MockDB) Writes() (saves, deletes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves, m.deletes
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
