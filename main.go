package main

import (
	"context"
	"errors"
	"flag"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/config"
	"github.com/debemdeboas/post-editor/internal/db"
	"github.com/debemdeboas/post-editor/internal/editor"
	"github.com/debemdeboas/post-editor/internal/logger"
	"github.com/debemdeboas/post-editor/internal/middleware"
	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/render"
	"github.com/debemdeboas/post-editor/internal/repository"
	"github.com/debemdeboas/post-editor/internal/routes"
	"github.com/debemdeboas/post-editor/internal/sse"
	"github.com/debemdeboas/post-editor/internal/templates"
)

// Replaced by setLoggers once the configuration is read.
var log = zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

// watcher is implemented by repositories that can pick up writes made by
// other processes.
type watcher interface {
	Watch(ctx context.Context, interval time.Duration)
}

// app holds what the page handlers share.
type app struct {
	posts    repository.PostRepository
	renderer *render.Renderer
	clients  *sse.Hub
}

func newApp(posts repository.PostRepository, renderer *render.Renderer, clients *sse.Hub) *app {
	a := &app{
		posts:    posts,
		renderer: renderer,
		clients:  clients,
	}
	posts.SetReloadNotifier(a.handleReloadPost)
	return a
}

func setLoggers(l zerolog.Logger) {
	log = l
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)
	render.SetLogger(l)
	editor.SetLogger(l)
	sse.SetLogger(l)
	middleware.SetLogger(l)
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	setLoggers(logger.New("info", logger.FormatConsole))

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file loaded")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Error loading configuration")
	}
	cfg := config.AppConfig
	setLoggers(logger.New(cfg.Logging.Level, cfg.Logging.Format))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	posts, closeStore, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage.Type).Msg("Error opening post storage")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Error closing post storage")
		}
	}()

	if err := posts.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg(config.ErrInitializingPosts)
	}
	if w, ok := posts.(watcher); ok && cfg.Storage.SQLite.PollInterval > 0 {
		go w.Watch(ctx, cfg.Storage.SQLite.PollInterval)
	}

	a := newApp(posts, render.New(cfg.Markdown.Renderer, cfg.Markdown.SyntaxTheme), sse.NewHub())

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		// Cancelled on shutdown so open event streams end.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Type).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down server")
		}
	}
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, config.CTypeText)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})
	mux.HandleFunc(routes.SSEPath, a.clients.Handler)
	mux.HandleFunc(routes.PostPath, a.servePost)
	mux.HandleFunc(routes.RootPath, a.serveIndex)
	editor.NewHandler(a.posts).Register(mux)

	return middleware.Chain(mux,
		middleware.Recover,
		middleware.Logging,
		middleware.SecureHeaders,
		middleware.NoCache,
	)
}

func (a *app) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != routes.RootPath {
		a.renderError(w, r, http.StatusNotFound, "Page not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	posts, err := a.posts.ListPosts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error listing posts")
		a.renderError(w, r, http.StatusInternalServerError, config.ErrInternalServerError)
		return
	}

	data := struct {
		*model.PageData
		Posts []model.Post
	}{
		PageData: model.NewPageData(r, ""),
		Posts:    posts,
	}

	if err := templates.Render(w, http.StatusOK, config.TemplateIndex, data); err != nil {
		log.Error().Err(err).Msg(config.ErrRenderTemplate)
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func (a *app) servePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	id, err := model.ParsePostID(r.PathValue(routes.IDParam))
	if err != nil {
		a.renderError(w, r, http.StatusNotFound, config.ErrPostNotFound)
		return
	}

	post, err := a.posts.GetPost(r.Context(), id)
	if errors.Is(err, repository.ErrPostNotFound) {
		a.renderError(w, r, http.StatusNotFound, config.ErrPostNotFound)
		return
	} else if err != nil {
		log.Error().Err(err).Int64("post_id", int64(id)).Msg(config.ErrLoadingPost)
		a.renderError(w, r, http.StatusInternalServerError, config.ErrInternalServerError)
		return
	}

	html := a.renderer.RenderCached([]byte(post.Content), post.ContentHash)

	data := struct {
		*model.PageData
		Post     *model.Post
		Content  template.HTML
		EditPath string
	}{
		PageData: model.NewPageData(r, post.Title),
		Post:     post,
		Content:  template.HTML(html),
		EditPath: routes.EditPostPath(post.ID.String()),
	}

	if err := templates.Render(w, http.StatusOK, config.TemplatePost, data); err != nil {
		log.Error().Err(err).Msg(config.ErrRenderTemplate)
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func (a *app) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := templates.RenderError(w, r, status, message); err != nil {
		log.Error().Err(err).Msg(config.ErrRenderTemplate)
		http.Error(w, message, status)
	}
}

// handleReloadPost runs after a post was edited: open detail pages reload and
// the new content is rendered ahead of their request.
func (a *app) handleReloadPost(id model.PostID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if post, err := a.posts.GetPost(ctx, id); err == nil {
		a.renderer.Warm([]byte(post.Content), post.ContentHash)
	} else {
		log.Warn().Err(err).Int64("post_id", int64(id)).Msg("Could not warm render cache")
	}

	a.clients.NotifyReload(id)
}
