package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/util"
	"github.com/debemdeboas/post-editor/internal/util/compression"
)

var _ PostRepository = (*S3PostRepository)(nil)

const s3ObjectSuffix = ".json.gz"

// S3API is the subset of *s3.Client used by S3PostRepository.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client for an S3 compatible endpoint with static credentials.
func NewS3Client(ctx context.Context, accessKeyID, accessKeySecret, baseEndpoint, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3PostRepository stores every post as one gzip compressed JSON object named
// <prefix><id>.json.gz. New ids continue from the highest id in the bucket.
type S3PostRepository struct { // implements PostRepository
	client S3API
	bucket string
	prefix string

	mu     sync.Mutex // serializes id assignment
	lastID model.PostID

	reloadNotifier func(model.PostID)
	compressor     compression.Compressor
}

func NewS3PostRepository(client S3API, bucket, prefix string) *S3PostRepository {
	return &S3PostRepository{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		compressor: compression.GzipCompressor{},
	}
}

// s3Post is the stored object layout.
type s3Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ImgURL      string    `json:"imgUrl"`
	ContentHash string    `json:"contentHash"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

func (r *S3PostRepository) key(id model.PostID) string {
	return r.prefix + id.String() + s3ObjectSuffix
}

func (r *S3PostRepository) idFromKey(key string) (model.PostID, bool) {
	name, ok := strings.CutPrefix(key, r.prefix)
	if !ok {
		return 0, false
	}
	name, ok = strings.CutSuffix(name, s3ObjectSuffix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return model.PostID(id), true
}

func (r *S3PostRepository) listIDs(ctx context.Context) ([]model.PostID, error) {
	var ids []model.PostID

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing posts: %w", err)
		}
		for _, obj := range page.Contents {
			if id, ok := r.idFromKey(aws.ToString(obj.Key)); ok {
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

func (r *S3PostRepository) Init(ctx context.Context) error {
	ids, err := r.listIDs(ctx)
	if err != nil {
		return fmt.Errorf("error initializing posts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if id > r.lastID {
			r.lastID = id
		}
	}

	repoLogger.Info().Int("posts", len(ids)).Int64("last_id", int64(r.lastID)).Msg("Posts indexed")
	return nil
}

func (r *S3PostRepository) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %d", ErrPostNotFound, id)
		}
		return nil, fmt.Errorf("error loading post %d: %w", id, err)
	}
	defer out.Body.Close()

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading post %d: %w", id, err)
	}

	data, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing post %d: %w", id, err)
	}

	var stored s3Post
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("error decoding post %d: %w", id, err)
	}

	return &model.Post{
		ID:          model.PostID(stored.ID),
		Title:       stored.Title,
		Content:     stored.Content,
		ImgURL:      stored.ImgURL,
		ContentHash: stored.ContentHash,
		CreatedAt:   stored.CreatedAt,
		ModifiedAt:  stored.ModifiedAt,
	}, nil
}

func (r *S3PostRepository) put(ctx context.Context, post *model.Post) error {
	data, err := json.Marshal(s3Post{
		ID:          int64(post.ID),
		Title:       post.Title,
		Content:     post.Content,
		ImgURL:      post.ImgURL,
		ContentHash: post.ContentHash,
		CreatedAt:   post.CreatedAt,
		ModifiedAt:  post.ModifiedAt,
	})
	if err != nil {
		return fmt.Errorf("error encoding post: %w", err)
	}

	compressed, err := r.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing post: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(r.bucket),
		Key:             aws.String(r.key(post.ID)),
		Body:            bytes.NewReader(compressed),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}
	return nil
}

func (r *S3PostRepository) AddPost(ctx context.Context, post *model.Post) error {
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

	if err := r.put(ctx, post); err != nil {
		return err
	}

	repoLogger.Debug().Int64("post_id", int64(id)).Msg("Post saved")
	return nil
}

func (r *S3PostRepository) EditPost(ctx context.Context, post *model.Post) error {
	if post == nil {
		return fmt.Errorf("post cannot be nil")
	}

	existing, err := r.GetPost(ctx, post.ID)
	if err != nil {
		return err
	}

	post.CreatedAt = existing.CreatedAt
	post.ModifiedAt = time.Now().UTC()
	post.ContentHash = util.ContentHashString(post.Content)

	if err := r.put(ctx, post); err != nil {
		return err
	}

	repoLogger.Debug().Int64("post_id", int64(post.ID)).Msg("Post content set")
	if r.reloadNotifier != nil {
		go r.reloadNotifier(post.ID)
	}
	return nil
}

func (r *S3PostRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	ids, err := r.listIDs(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		post, err := r.GetPost(ctx, id)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}

	sortNewestFirst(posts)
	return posts, nil
}

func (r *S3PostRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.reloadNotifier = notifier
}
