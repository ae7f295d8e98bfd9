// Package repository holds the post stores the editor reads from and writes to.
package repository

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type PostRepository interface {
	Init(ctx context.Context) error

	// GetPost returns ErrPostNotFound when no post has the id.
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)
	// AddPost persists a new post and writes the id it was given back into post.
	AddPost(ctx context.Context, post *model.Post) error
	// EditPost persists post under post.ID, which must already exist.
	EditPost(ctx context.Context, post *model.Post) error
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]model.Post, error)

	// SetReloadNotifier sets a function that will be called when a post is edited.
	SetReloadNotifier(notifier func(model.PostID))
}

func sortNewestFirst(posts []model.Post) {
	slices.SortStableFunc(posts, func(a, b model.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		} else if a.ID < b.ID {
			return 1
		}
		return 0
	})
}
