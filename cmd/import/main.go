// Command import stores every .md file of a directory as a post in the
// configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/config"
	"github.com/debemdeboas/post-editor/internal/db"
	"github.com/debemdeboas/post-editor/internal/editor"
	"github.com/debemdeboas/post-editor/internal/logger"
	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/repository"
	"github.com/debemdeboas/post-editor/internal/util"
)

var log zerolog.Logger

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	path := flag.String("path", "", "Path to the directory containing .md files")
	dryRun := flag.Bool("dry-run", false, "Parse and validate files without saving them")
	flag.Parse()

	log = logger.New("info", logger.FormatConsole)
	config.SetLogger(log)

	if *path == "" {
		log.Fatal().Msg("The --path flag is required")
	}

	_ = godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}
	log = logger.New(config.AppConfig.Logging.Level, config.AppConfig.Logging.Format)
	db.SetLogger(log)
	repository.SetLogger(log)
	editor.SetLogger(log)

	ctx := context.Background()

	repo, closeStore, err := repository.Open(ctx, config.AppConfig.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening post storage")
	}
	defer closeStore()

	if err := repo.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg(config.ErrInitializingPosts)
	}

	var store editor.PostStore = repo
	if *dryRun {
		store = nil
	}

	imported, failed := importDir(ctx, store, *path)
	log.Info().Int("imported", imported).Int("failed", failed).Bool("dry_run", *dryRun).Msg("Import finished")
	if failed > 0 {
		os.Exit(1)
	}
}

// importDir imports every .md file directly inside dir. A nil store only
// parses and validates.
func importDir(ctx context.Context, store editor.PostStore, dir string) (imported, failed int) {
	files, err := os.ReadDir(dir)
	if err != nil {
		log.Error().Err(err).Str("path", dir).Msg("Error reading directory")
		return 0, 1
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		post, err := parseFile(filepath.Join(dir, file.Name()))
		if err == nil && store != nil {
			err = store.AddPost(ctx, post)
		}
		if err != nil {
			log.Error().Err(err).Str("file", file.Name()).Msg("Error importing file")
			failed++
			continue
		}

		log.Info().Str("file", file.Name()).Int64("post_id", int64(post.ID)).Str("title", post.Title).Msg("Imported post")
		imported++
	}

	return imported, failed
}

// parseFile builds a post from a markdown file. The title comes from the
// front matter, then the first heading, then the file name. The post must
// pass the same checks as the editor form.
func parseFile(path string) (*model.Post, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Content:   string(content),
		CreatedAt: info.ModTime().UTC(),
	}

	if fm, err := util.GetFrontMatter(content); err == nil {
		post.Content = string(util.StripFrontMatter(content))
		post.Title = fm.Title
		post.ImgURL = fm.Image
		if !fm.Date.IsZero() {
			post.CreatedAt = fm.Date.UTC()
		}
	}

	if strings.TrimSpace(post.Title) == "" {
		post.Title = util.FirstHeading([]byte(post.Content))
	}
	if strings.TrimSpace(post.Title) == "" {
		post.Title = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	if errs := editor.Validate(*post); len(errs) > 0 {
		return nil, fmt.Errorf("invalid post: %v", errs)
	}

	post.ModifiedAt = time.Now().UTC()
	return post, nil
}
