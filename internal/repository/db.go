package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/post-editor/internal/cache"
	"github.com/debemdeboas/post-editor/internal/db"
	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/util"
	"github.com/debemdeboas/post-editor/internal/util/compression"
)

var _ PostRepository = (*DBPostRepository)(nil)

const (
	selectPostColumns = `SELECT id, title, content, img_url, content_hash, created_at, modified_at FROM posts`

	getPostQuery   = selectPostColumns + ` WHERE id = ?`
	listPostsQuery = selectPostColumns + ` ORDER BY created_at DESC, id DESC`

	insertPostQuery = `
		INSERT INTO posts (title, content, img_url, content_hash, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	// created_at is set once by insertPostQuery and never changes.
	updatePostQuery = `
		UPDATE posts SET title = ?, content = ?, img_url = ?, content_hash = ?, modified_at = ?
		WHERE id = ?`

	latestModifiedQuery = `SELECT MAX(modified_at) FROM posts`
)

type DBPostRepository struct { // implements PostRepository
	postsCache *cache.Cache[model.PostID, *model.Post]

	reloadNotifier   func(model.PostID)
	lastModifiedTime *time.Time // Track the latest modification time

	db         db.DB
	compressor compression.Compressor
}

func NewDBPostRepository(db db.DB) *DBPostRepository {
	return &DBPostRepository{
		postsCache: cache.NewCache[model.PostID, *model.Post](),

		db: db,

		compressor: compression.ZstdCompressor{},
	}
}

// Init fills the read cache from the database.
func (r *DBPostRepository) Init(ctx context.Context) error {
	posts, err := r.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("error initializing posts: %w", err)
	}

	postMap := make(map[model.PostID]*model.Post, len(posts))
	for i := range posts {
		postMap[posts[i].ID] = &posts[i]
	}
	r.postsCache.SetTo(postMap)
	r.lastModifiedTime = latestModified(posts)

	repoLogger.Info().Int("posts", len(posts)).Msg("Posts loaded")
	return nil
}

// postRow is the scan target for a posts row.
type postRow struct {
	ID          int64
	Title       string
	Content     []byte
	ImgURL      string
	ContentHash sql.NullString
	CreatedAt   sql.NullTime
	ModifiedAt  sql.NullTime
}

func (r *DBPostRepository) toDomain(row *postRow) (*model.Post, error) {
	// Decompress the content
	content, err := r.compressor.Decompress(row.Content)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content of post %d: %w", row.ID, err)
	}

	post := &model.Post{
		ID:          model.PostID(row.ID),
		Title:       row.Title,
		Content:     string(content),
		ImgURL:      row.ImgURL,
		ContentHash: row.ContentHash.String,
	}
	if row.CreatedAt.Valid {
		post.CreatedAt = row.CreatedAt.Time
	}
	if row.ModifiedAt.Valid {
		post.ModifiedAt = row.ModifiedAt.Time
	}
	return post, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPostRow(s scanner) (*postRow, error) {
	var row postRow
	err := s.Scan(&row.ID, &row.Title, &row.Content, &row.ImgURL, &row.ContentHash, &row.CreatedAt, &row.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *DBPostRepository) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	if post, ok := r.postsCache.Get(id); ok {
		cp := *post
		return &cp, nil
	}

	row, err := scanPostRow(r.db.QueryRowContext(ctx, getPostQuery, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading post %d: %w", id, err)
	}

	post, err := r.toDomain(row)
	if err != nil {
		return nil, err
	}

	cp := *post
	r.postsCache.Set(id, &cp)
	return post, nil
}

func (r *DBPostRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		row, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		post, err := r.toDomain(row)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

func (r *DBPostRepository) AddPost(ctx context.Context, post *model.Post) error {
	if post == nil {
		return fmt.Errorf("post cannot be nil")
	}

	compressed, err := r.compressor.Compress([]byte(post.Content))
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.ModifiedAt = now
	post.ContentHash = util.ContentHashString(post.Content)

	res, err := r.db.ExecContext(ctx, insertPostQuery,
		post.Title, compressed, post.ImgURL, post.ContentHash, post.CreatedAt, post.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading new post id: %w", err)
	}
	post.ID = model.PostID(id)

	cp := *post
	r.postsCache.Set(post.ID, &cp)

	repoLogger.Debug().Int64("post_id", id).Msg("Post saved")
	return nil
}

func (r *DBPostRepository) EditPost(ctx context.Context, post *model.Post) error {
	if post == nil {
		return fmt.Errorf("post cannot be nil")
	}

	compressed, err := r.compressor.Compress([]byte(post.Content))
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	post.ModifiedAt = time.Now().UTC()
	post.ContentHash = util.ContentHashString(post.Content)

	res, err := r.db.ExecContext(ctx, updatePostQuery,
		post.Title, compressed, post.ImgURL, post.ContentHash, post.ModifiedAt, int64(post.ID),
	)
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrPostNotFound, post.ID)
	}

	// Drop the cached copy so the next read picks up the stored created_at.
	r.postsCache.Delete(post.ID)

	repoLogger.Debug().Int64("post_id", int64(post.ID)).Msg("Post content set")
	if r.reloadNotifier != nil {
		go r.reloadNotifier(post.ID)
	}
	return nil
}

func (r *DBPostRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.reloadNotifier = notifier
}

func latestModified(posts []model.Post) *time.Time {
	var latest *time.Time
	for i := range posts {
		if latest == nil || posts[i].ModifiedAt.After(*latest) {
			latest = &posts[i].ModifiedAt
		}
	}
	return latest
}

func (r *DBPostRepository) GetLatestModifiedTime(ctx context.Context) (*time.Time, error) {
	var latestTimeStr sql.NullString
	err := r.db.QueryRowContext(ctx, latestModifiedQuery).Scan(&latestTimeStr)
	if err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil // It was NULL, so no posts or no valid timestamps.
	}

	// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
	// It can be in a format with a space separator.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00", // Space separator with timezone
		time.RFC3339Nano,                      // 'T' separator with timezone
		time.RFC3339,                          // 'T' separator, no nanos
	}

	var latestTime time.Time
	var parseErr error
	for _, format := range timeFormats {
		latestTime, parseErr = time.Parse(format, latestTimeStr.String)
		if parseErr == nil {
			return &latestTime, nil
		}
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

// Watch polls the database until ctx is done and refreshes the read cache when
// another process (for example cmd/import) has written posts. The reload
// notifier fires for every cached post whose content changed.
func (r *DBPostRepository) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.refresh(ctx); err != nil {
			repoLogger.Error().Err(err).Msg("Error reloading posts")
		}
	}
}

func (r *DBPostRepository) refresh(ctx context.Context) error {
	latestTime, err := r.GetLatestModifiedTime(ctx)
	if err != nil {
		return err
	}

	if r.lastModifiedTime != nil && latestTime != nil && !latestTime.After(*r.lastModifiedTime) {
		repoLogger.Debug().Msg("No posts modified, skipping reload")
		return nil
	}

	posts, err := r.ListPosts(ctx)
	if err != nil {
		return err
	}

	postMap := make(map[model.PostID]*model.Post, len(posts))
	for i := range posts {
		post := &posts[i]
		postMap[post.ID] = post

		if cached, ok := r.postsCache.Get(post.ID); ok && cached.ContentHash != post.ContentHash {
			repoLogger.Info().
				Int64("post_id", int64(post.ID)).
				Str("title", post.Title).
				Msg("Post content changed, reloading")
			if r.reloadNotifier != nil {
				go r.reloadNotifier(post.ID)
			}
		}
	}

	r.postsCache.SetTo(postMap)
	r.lastModifiedTime = latestTime
	return nil
}
