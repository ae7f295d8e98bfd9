package editor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/repository"
)

func newTestServer(t *testing.T, store PostStore) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(store).Register(mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) (*http.Response, string) {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	return res, string(body)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandler_NewPostForm(t *testing.T) {
	mux := newTestServer(t, repository.NewMemoryPostRepository())

	res, body := serve(mux, httptest.NewRequest(http.MethodGet, "/new/post", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", res.StatusCode)
	}

	for _, want := range []string{`name="title"`, `<textarea id="content" name="content"`, `name="imgUrl"`, `type="submit"`, `<a href="/">Back</a>`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected body to contain %q", want)
		}
	}
	if strings.Contains(body, "field-error") {
		t.Error("Expected no errors on a fresh form")
	}
}

func TestHandler_EditPostForm(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	post := &model.Post{Title: "A", Content: "B", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := repo.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	mux := newTestServer(t, repo)

	res, body := serve(mux, httptest.NewRequest(http.MethodGet, "/edit/post/"+post.ID.String(), nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, `value="A"`) || !strings.Contains(body, "\nB</textarea>") {
		t.Errorf("Expected form pre-filled with the post, got %s", body)
	}
	if !strings.Contains(body, `<a href="/post/`+post.ID.String()+`">Back</a>`) {
		t.Errorf("Expected back link to the post, got %s", body)
	}
}

func TestHandler_EditPostLeadingDigits(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	var fifth *model.Post
	for i := 1; i <= 5; i++ {
		post := &model.Post{Title: "Post " + strconv.Itoa(i), Content: "Body"}
		if err := repo.AddPost(ctx, post); err != nil {
			t.Fatalf("AddPost failed: %v", err)
		}
		fifth = post
	}
	if fifth.ID != 5 {
		t.Fatalf("Expected the fifth post to get id 5, got %d", fifth.ID)
	}
	mux := newTestServer(t, repo)

	for _, path := range []string{"/edit/post/5abc", "/edit/post/5.7"} {
		t.Run(path, func(t *testing.T) {
			res, body := serve(mux, httptest.NewRequest(http.MethodGet, path, nil))
			if res.StatusCode != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", res.StatusCode)
			}
			if !strings.Contains(body, `value="Post 5"`) {
				t.Errorf("Expected form pre-filled with post 5, got %s", body)
			}

			res, _ = serve(mux, postForm(path, url.Values{"title": {"Renamed"}, "content": {"Body"}}))
			if res.StatusCode != http.StatusSeeOther {
				t.Fatalf("Expected status 303, got %d", res.StatusCode)
			}
			if loc := res.Header.Get("Location"); loc != "/post/5" {
				t.Errorf("Expected redirect to /post/5, got %q", loc)
			}
		})
	}
}

func TestHandler_ContentLeadingNewline(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	post := &model.Post{Title: "A", Content: "\n    indented code"}
	if err := repo.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	mux := newTestServer(t, repo)

	_, body := serve(mux, httptest.NewRequest(http.MethodGet, "/edit/post/"+post.ID.String(), nil))
	// Browsers drop one newline right after <textarea>, so the content's own
	// leading newline must follow a second one.
	if !strings.Contains(body, "rows=\"16\">\n\n    indented code</textarea>") {
		t.Errorf("Expected the leading newline to survive, got %s", body)
	}
}

func TestHandler_EditMissingPost(t *testing.T) {
	mux := newTestServer(t, repository.NewMemoryPostRepository())

	for _, path := range []string{"/edit/post/5", "/edit/post/abc"} {
		t.Run(path, func(t *testing.T) {
			for _, req := range []*http.Request{
				httptest.NewRequest(http.MethodGet, path, nil),
				postForm(path, url.Values{"title": {"x"}, "content": {"y"}}),
			} {
				res, body := serve(mux, req)
				if res.StatusCode != http.StatusNotFound {
					t.Errorf("%s: expected status 404, got %d", req.Method, res.StatusCode)
				}
				if strings.Contains(body, "<form") || strings.Contains(body, `name="title"`) {
					t.Errorf("%s: expected no form fields on the error page", req.Method)
				}
			}
		})
	}
}

func TestHandler_CreatePost(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	mux := newTestServer(t, repo)

	res, _ := serve(mux, postForm("/new/post", url.Values{
		"title":   {"Hi"},
		"content": {"World"},
		"imgUrl":  {"https://example.com/x"},
	}))

	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/post/1" {
		t.Errorf("Expected redirect to /post/1, got %q", loc)
	}

	got, err := repo.GetPost(ctx, 1)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Hi" || got.Content != "World" || got.ImgURL != "https://example.com/x" {
		t.Errorf("Unexpected stored post: %+v", got)
	}
}

func TestHandler_CreatePostHtmx(t *testing.T) {
	mux := newTestServer(t, repository.NewMemoryPostRepository())

	req := postForm("/new/post", url.Values{"title": {"Hi"}, "content": {"World"}})
	req.Header.Set("HX-Request", "true")
	res, _ := serve(mux, req)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", res.StatusCode)
	}
	if got := res.Header.Get("HX-Redirect"); got != "/post/1" {
		t.Errorf("Expected HX-Redirect /post/1, got %q", got)
	}
}

func TestHandler_CreatePostInvalid(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	mux := newTestServer(t, repo)

	res, body := serve(mux, postForm("/new/post", url.Values{
		"title":   {"  "},
		"content": {""},
		"imgUrl":  {"www.example.com"},
	}))

	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", res.StatusCode)
	}
	for _, msg := range []string{"Title is required", "Content is required", "Invalid URL format"} {
		if !strings.Contains(body, msg) {
			t.Errorf("Expected body to contain %q", msg)
		}
	}
	if !strings.Contains(body, `value="www.example.com"`) {
		t.Error("Expected submitted values to be kept in the form")
	}

	posts, _ := repo.ListPosts(ctx)
	if len(posts) != 0 {
		t.Errorf("Expected nothing stored, got %d posts", len(posts))
	}
}

func TestHandler_InvalidHtmxKeepsStatusOK(t *testing.T) {
	mux := newTestServer(t, repository.NewMemoryPostRepository())

	req := postForm("/new/post", url.Values{"title": {""}, "content": {"x"}})
	req.Header.Set("HX-Request", "true")
	res, body := serve(mux, req)

	if res.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "Title is required") {
		t.Error("Expected title error in body")
	}
}

func TestHandler_EditPost(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	post := &model.Post{Title: "A", Content: "B"}
	if err := repo.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	created := post.CreatedAt
	mux := newTestServer(t, repo)

	path := "/edit/post/" + post.ID.String()
	res, _ := serve(mux, postForm(path, url.Values{"title": {"A2"}, "content": {"B"}}))

	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/post/"+post.ID.String() {
		t.Errorf("Expected redirect to the post, got %q", loc)
	}

	got, err := repo.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "A2" || got.Content != "B" {
		t.Errorf("Unexpected stored post: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created time to be kept, got %v want %v", got.CreatedAt, created)
	}
}

func TestHandler_EditPostBlankTitle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	post := &model.Post{Title: "A", Content: "B"}
	if err := repo.AddPost(ctx, post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	mux := newTestServer(t, repo)

	res, body := serve(mux, postForm("/edit/post/"+post.ID.String(), url.Values{"title": {""}}))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "Title is required") {
		t.Error("Expected title error in body")
	}
	// Fields missing from the request keep the stored value.
	if !strings.Contains(body, "\nB</textarea>") {
		t.Error("Expected content to keep the stored value")
	}

	got, _ := repo.GetPost(ctx, post.ID)
	if got.Title != "A" {
		t.Errorf("Expected stored title to stay A, got %q", got.Title)
	}
}

type failingStore struct {
	PostStore
	err error
}

func (s failingStore) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	return nil, s.err
}

func (s failingStore) AddPost(ctx context.Context, post *model.Post) error {
	return s.err
}

func TestHandler_StoreFailures(t *testing.T) {
	mux := newTestServer(t, failingStore{err: errors.New("boom")})

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"load edit target", httptest.NewRequest(http.MethodGet, "/edit/post/1", nil)},
		{"create", postForm("/new/post", url.Values{"title": {"Hi"}, "content": {"World"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := serve(mux, tt.req)
			if res.StatusCode != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", res.StatusCode)
			}
			if strings.Contains(body, "boom") {
				t.Error("Expected store error details to stay out of the page")
			}
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	mux := newTestServer(t, repository.NewMemoryPostRepository())

	res, _ := serve(mux, httptest.NewRequest(http.MethodDelete, "/new/post", nil))
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", res.StatusCode)
	}
}
