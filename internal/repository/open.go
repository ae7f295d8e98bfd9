package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/debemdeboas/post-editor/internal/config"
	"github.com/debemdeboas/post-editor/internal/db"
)

// Open builds the repository selected by storage.type. The returned close
// function releases whatever the repository holds open. Init is left to the caller.
func Open(ctx context.Context, storage config.StorageConfig) (PostRepository, func() error, error) {
	noop := func() error { return nil }

	switch storage.Type {
	case config.StorageMemory:
		return NewMemoryPostRepository(), noop, nil

	case config.StorageSQLite:
		database := db.NewSQLite(storage.SQLite.Path)
		if err := database.InitDB(); err != nil {
			return nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		return NewDBPostRepository(database), database.Close, nil

	case config.StorageS3:
		client, err := NewS3Client(ctx,
			os.Getenv(config.EnvS3AccessKeyID),
			os.Getenv(config.EnvS3SecretAccessKey),
			storage.S3.Endpoint,
			storage.S3.Region,
		)
		if err != nil {
			return nil, nil, err
		}
		return NewS3PostRepository(client, storage.S3.Bucket, storage.S3.Prefix), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", storage.Type)
	}
}
