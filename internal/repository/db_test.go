package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/db"
	"github.com/debemdeboas/post-editor/internal/model"
)

func newTestSQLite(t *testing.T) *db.SQLite {
	t.Helper()

	db.SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	sqlite := db.NewSQLite(filepath.Join(t.TempDir(), "posts.db"))
	if err := sqlite.InitDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return sqlite
}

func newTestDBRepository(t *testing.T) *DBPostRepository {
	t.Helper()

	repo := NewDBPostRepository(newTestSQLite(t))
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return repo
}

func TestDBPostRepository(t *testing.T) {
	testPostRepository(t, func(t *testing.T) PostRepository {
		return newTestDBRepository(t)
	})
}

func TestDBPostRepository_ContentIsCompressed(t *testing.T) {
	sqlite := newTestSQLite(t)
	repo := NewDBPostRepository(sqlite)
	ctx := context.Background()

	post := &model.Post{Title: "t", Content: "plain text body"}
	if err := repo.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}

	var raw []byte
	if err := sqlite.QueryRowContext(ctx, `SELECT content FROM posts WHERE id = ?`, int64(post.ID)).Scan(&raw); err != nil {
		t.Fatalf("Failed to read raw content: %v", err)
	}
	if string(raw) == post.Content {
		t.Error("Expected content to be stored compressed")
	}
}

func TestDBPostRepository_InitLoadsExistingPosts(t *testing.T) {
	sqlite := newTestSQLite(t)
	ctx := context.Background()

	writer := NewDBPostRepository(sqlite)
	post := &model.Post{Title: "persisted", Content: "c"}
	if err := writer.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}

	reader := NewDBPostRepository(sqlite)
	if err := reader.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, ok := reader.postsCache.Get(post.ID); !ok {
		t.Error("Expected Init to cache the existing post")
	}
	if reader.lastModifiedTime == nil {
		t.Error("Expected Init to track the latest modification time")
	}
}

func TestDBPostRepository_Refresh(t *testing.T) {
	sqlite := newTestSQLite(t)
	ctx := context.Background()

	server := NewDBPostRepository(sqlite)
	importer := NewDBPostRepository(sqlite)

	post := &model.Post{Title: "t", Content: "v1"}
	if err := importer.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	if err := server.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	notified := make(chan model.PostID, 1)
	server.SetReloadNotifier(func(id model.PostID) { notified <- id })

	t.Run("Latest modified time is readable", func(t *testing.T) {
		latest, err := server.GetLatestModifiedTime(ctx)
		if err != nil {
			t.Fatalf("GetLatestModifiedTime failed: %v", err)
		}
		if latest == nil {
			t.Fatal("Expected a latest modified time")
		}
	})

	t.Run("Nothing changed", func(t *testing.T) {
		if err := server.refresh(ctx); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		select {
		case id := <-notified:
			t.Errorf("Unexpected notification for %d", id)
		default:
		}
	})

	t.Run("Change from another writer", func(t *testing.T) {
		time.Sleep(10 * time.Millisecond)
		post.Content = "v2"
		if err := importer.EditPost(ctx, post); err != nil {
			t.Fatalf("EditPost failed: %v", err)
		}

		if err := server.refresh(ctx); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}

		select {
		case id := <-notified:
			if id != post.ID {
				t.Errorf("Expected notification for %d, got %d", post.ID, id)
			}
		case <-time.After(time.Second):
			t.Fatal("Expected reload notification")
		}

		got, err := server.GetPost(ctx, post.ID)
		if err != nil {
			t.Fatalf("GetPost failed: %v", err)
		}
		if got.Content != "v2" {
			t.Errorf("Expected refreshed content 'v2', got %q", got.Content)
		}
	})
}

func TestDBPostRepository_WatchStopsWithContext(t *testing.T) {
	repo := newTestDBRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		repo.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Watch to return after cancel")
	}
}
