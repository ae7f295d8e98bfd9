package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/post-editor/internal/cache"
	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/util"
)

var _ PostRepository = (*MemoryPostRepository)(nil)

// MemoryPostRepository keeps posts in process memory. Ids are assigned
// sequentially starting at 1.
type MemoryPostRepository struct {
	posts *cache.Cache[model.PostID, *model.Post]

	mu     sync.Mutex // serializes id assignment
	lastID model.PostID

	reloadNotifier func(model.PostID)
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{
		posts: cache.NewCache[model.PostID, *model.Post](),
	}
}

func (r *MemoryPostRepository) Init(ctx context.Context) error {
	return nil
}

func (r *MemoryPostRepository) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	post, ok := r.posts.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}
	cp := *post
	return &cp, nil
}

func (r *MemoryPostRepository) AddPost(ctx context.Context, post *model.Post) error {
	if post == nil {
		return fmt.Errorf("post cannot be nil")
	}

	r.mu.Lock()
	r.lastID++
	id := r.lastID
	r.mu.Unlock()

	now := time.Now().UTC()
	post.ID = id
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.ModifiedAt = now
	post.ContentHash = util.ContentHashString(post.Content)

	cp := *post
	r.posts.Set(id, &cp)

	repoLogger.Debug().Int64("post_id", int64(id)).Msg("Post added")
	return nil
}

func (r *MemoryPostRepository) EditPost(ctx context.Context, post *model.Post) error {
	if post == nil {
		return fmt.Errorf("post cannot be nil")
	}

	existing, ok := r.posts.Get(post.ID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, post.ID)
	}

	post.CreatedAt = existing.CreatedAt
	post.ModifiedAt = time.Now().UTC()
	post.ContentHash = util.ContentHashString(post.Content)

	cp := *post
	r.posts.Set(post.ID, &cp)

	repoLogger.Debug().Int64("post_id", int64(post.ID)).Msg("Post edited")
	if r.reloadNotifier != nil {
		go r.reloadNotifier(post.ID)
	}
	return nil
}

func (r *MemoryPostRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	stored := r.posts.Values()
	posts := make([]model.Post, 0, len(stored))
	for _, p := range stored {
		posts = append(posts, *p)
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (r *MemoryPostRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.reloadNotifier = notifier
}
