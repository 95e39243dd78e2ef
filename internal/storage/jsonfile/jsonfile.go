package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"newsbot/internal/models"
	"newsbot/internal/storage"
)

// TimeLayout is the layout of publish_date values in the file
const TimeLayout = "2006-01-02 15:04:05"

// record is the on-disk shape of a published post
type record struct {
	PostID         int64  `json:"post_id"`
	AuthorID       int64  `json:"author_id"`
	AuthorUsername string `json:"author_username"`
	AuthorPhone    string `json:"author_phone"`
	PublishDate    string `json:"publish_date"`
	ChannelID      int64  `json:"channel_id"`
	Caption        string `json:"caption"`
}

// FileDB keeps published posts in memory and rewrites the whole JSON document on every change.
// The highest post id handed out is kept next to it in "<path>.seq".
type FileDB struct {
	mu       sync.RWMutex
	path     string
	seqPath  string
	loc      *time.Location
	posts    map[string]record
	reserved int64
	logger   *zap.Logger
}

// NewFileDB creates a store backed by the JSON document at path
func NewFileDB(path string, loc *time.Location, logger *zap.Logger) *FileDB {
	if loc == nil {
		loc = time.UTC
	}
	return &FileDB{
		path:    path,
		seqPath: path + ".seq",
		loc:     loc,
		posts:   make(map[string]record),
		logger:  logger,
	}
}

// Initialize loads the document, creating an empty one when the file is missing
func (db *FileDB) Initialize(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	reserved, err := db.loadSeqLocked()
	if err != nil {
		return err
	}
	db.reserved = reserved

	data, err := os.ReadFile(db.path)
	if errors.Is(err, os.ErrNotExist) {
		db.posts = make(map[string]record)
		return db.flushLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read posts file: %w", err)
	}

	posts := make(map[string]record)
	if err := json.Unmarshal(data, &posts); err != nil {
		// A damaged file starts the store empty, the next write replaces it
		db.logger.Warn("Posts file is not valid JSON, starting empty",
			zap.String("path", db.path),
			zap.Error(err),
		)
		posts = make(map[string]record)
	}
	db.posts = posts

	db.logger.Info("Loaded published posts",
		zap.String("path", db.path),
		zap.Int("count", len(posts)),
		zap.Int64("last_post_id", reserved),
	)
	return nil
}

func (db *FileDB) loadSeqLocked() (int64, error) {
	data, err := os.ReadFile(db.seqPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read post id file: %w", err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		db.logger.Warn("Post id file is damaged, falling back to published posts",
			zap.String("path", db.seqPath),
			zap.Error(err),
		)
		return 0, nil
	}
	return id, nil
}

// ReservePostID persists id when it is above the stored high-water mark
func (db *FileDB) ReservePostID(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if id <= db.reserved {
		return nil
	}
	if err := writeFileAtomic(db.seqPath, []byte(strconv.FormatInt(id, 10))); err != nil {
		return fmt.Errorf("failed to persist post id: %w", err)
	}
	db.reserved = id
	return nil
}

// SavePost stores the post and rewrites the file
func (db *FileDB) SavePost(ctx context.Context, post models.PublishedPost) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := strconv.Itoa(post.MessageID)
	prev, existed := db.posts[key]
	db.posts[key] = db.toRecord(post)

	if err := db.flushLocked(); err != nil {
		if existed {
			db.posts[key] = prev
		} else {
			delete(db.posts, key)
		}
		return err
	}
	return nil
}

// GetPost returns the post stored under the message id
func (db *FileDB) GetPost(ctx context.Context, messageID int) (*models.PublishedPost, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rec, ok := db.posts[strconv.Itoa(messageID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	post := db.fromRecord(messageID, rec)
	return &post, nil
}

// DeletePost removes the post and rewrites the file
func (db *FileDB) DeletePost(ctx context.Context, messageID int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := strconv.Itoa(messageID)
	prev, existed := db.posts[key]
	if !existed {
		return nil
	}
	delete(db.posts, key)

	if err := db.flushLocked(); err != nil {
		db.posts[key] = prev
		return err
	}
	return nil
}

// ListPosts returns every stored post ordered by message id
func (db *FileDB) ListPosts(ctx context.Context) ([]models.PublishedPost, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	posts := make([]models.PublishedPost, 0, len(db.posts))
	for key, rec := range db.posts {
		messageID, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		posts = append(posts, db.fromRecord(messageID, rec))
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].MessageID < posts[j].MessageID
	})
	return posts, nil
}

// MaxPostID returns the highest post id reserved or stored in the file
func (db *FileDB) MaxPostID(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	maxID := db.reserved
	for _, rec := range db.posts {
		if rec.PostID > maxID {
			maxID = rec.PostID
		}
	}
	return maxID, nil
}

// Close does nothing, every change is already on disk
func (db *FileDB) Close() error {
	return nil
}

// flushLocked rewrites the full posts document
func (db *FileDB) flushLocked() error {
	data, err := json.MarshalIndent(db.posts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode posts: %w", err)
	}
	return writeFileAtomic(db.path, data)
}

// writeFileAtomic writes data to a temp file and renames it over path
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (db *FileDB) toRecord(post models.PublishedPost) record {
	return record{
		PostID:         post.PostID,
		AuthorID:       post.AuthorID,
		AuthorUsername: post.AuthorUsername,
		AuthorPhone:    post.AuthorPhone,
		PublishDate:    post.PublishedAt.In(db.loc).Format(TimeLayout),
		ChannelID:      post.ChannelID,
		Caption:        post.Caption,
	}
}

func (db *FileDB) fromRecord(messageID int, rec record) models.PublishedPost {
	post := models.PublishedPost{
		MessageID:      messageID,
		PostID:         rec.PostID,
		AuthorID:       rec.AuthorID,
		AuthorUsername: rec.AuthorUsername,
		AuthorPhone:    rec.AuthorPhone,
		ChannelID:      rec.ChannelID,
		Caption:        rec.Caption,
	}
	if rec.PublishDate != "" {
		if t, err := time.ParseInLocation(TimeLayout, rec.PublishDate, db.loc); err == nil {
			post.PublishedAt = t
		}
	}
	return post
}
