package ch

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsbot/internal/models"
	"newsbot/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Options holds the ClickHouse connection settings
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseTLS   bool
}

type ClickHouseDB struct {
	conn clickhouse.Conn
	now  func() time.Time
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(opts Options) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
	}

	// Configure TLS if enabled
	if opts.UseTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, now: time.Now}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

// SavePost inserts a new version of the post row
func (db *ClickHouseDB) SavePost(ctx context.Context, post models.PublishedPost) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO published_posts
			(message_id, post_id, author_id, author_username, author_phone, publish_date, channel_id, caption, is_deleted, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(post.MessageID), post.PostID, post.AuthorID, post.AuthorUsername, post.AuthorPhone,
		post.PublishedAt, post.ChannelID, post.Caption, false, db.now())
	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

// GetPost returns the latest live version of the post
func (db *ClickHouseDB) GetPost(ctx context.Context, messageID int) (*models.PublishedPost, error) {
	row := db.conn.QueryRow(ctx, `
		SELECT message_id, post_id, author_id, author_username, author_phone, publish_date, channel_id, caption
		FROM published_posts FINAL
		WHERE message_id = ? AND is_deleted = false`, int64(messageID))

	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// DeletePost writes a tombstone version; ReplacingMergeTree keeps only the newest row
func (db *ClickHouseDB) DeletePost(ctx context.Context, messageID int) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO published_posts
			(message_id, post_id, author_id, author_username, author_phone, publish_date, channel_id, caption, is_deleted, version)
		SELECT message_id, post_id, author_id, author_username, author_phone, publish_date, channel_id, caption, true, ?
		FROM published_posts FINAL
		WHERE message_id = ? AND is_deleted = false`, db.now(), int64(messageID))
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// ListPosts returns all live posts ordered by message id
func (db *ClickHouseDB) ListPosts(ctx context.Context) ([]models.PublishedPost, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT message_id, post_id, author_id, author_username, author_phone, publish_date, channel_id, caption
		FROM published_posts FINAL
		WHERE is_deleted = false
		ORDER BY message_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.PublishedPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// ReservePostID records a post id handed out to a pending post
func (db *ClickHouseDB) ReservePostID(ctx context.Context, id int64) error {
	if err := db.conn.Exec(ctx, `INSERT INTO post_id_reservations (post_id, reserved_at) VALUES (?, ?)`, id, db.now()); err != nil {
		return fmt.Errorf("failed to reserve post id: %w", err)
	}
	return nil
}

// MaxPostID returns the highest post id ever reserved or written, deleted rows included
func (db *ClickHouseDB) MaxPostID(ctx context.Context) (int64, error) {
	var maxID int64
	err := db.conn.QueryRow(ctx, `
		SELECT greatest(
			(SELECT max(post_id) FROM published_posts),
			(SELECT max(post_id) FROM post_id_reservations)
		)`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max post id: %w", err)
	}
	return maxID, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.PublishedPost, error) {
	var (
		post      models.PublishedPost
		messageID int64
	)
	err := s.Scan(&messageID, &post.PostID, &post.AuthorID, &post.AuthorUsername, &post.AuthorPhone,
		&post.PublishedAt, &post.ChannelID, &post.Caption)
	if err != nil {
		return nil, err
	}
	post.MessageID = int(messageID)
	return &post, nil
}
