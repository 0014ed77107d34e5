package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ErrDatasetMissing marks a dataset that does not exist at its source.
var ErrDatasetMissing = errors.New("dataset missing")

// Source yields the raw bytes of one dataset.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads a dataset from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, s.Path)
	}
	return f, err
}

func (s FileSource) String() string { return "file://" + s.Path }

// ObjectStoreConfig configures the S3-compatible client used for s3:// datasets.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// NewObjectClient connects to MinIO or any S3-compatible store.
func NewObjectClient(cfg ObjectStoreConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
}

// ObjectSource reads a dataset object from a bucket.
type ObjectSource struct {
	client *minio.Client
	bucket string
	key    string
}

func NewObjectSource(client *minio.Client, bucket, key string) ObjectSource {
	return ObjectSource{client: client, bucket: bucket, key: key}
}

func (s ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, s.key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, s)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
}

func (s ObjectSource) String() string { return "s3://" + s.bucket + "/" + s.key }

// Loader turns configured dataset locations into stores.
type Loader struct {
	objects *minio.Client
	logger  zerolog.Logger
}

// NewLoader builds a loader; objects may be nil when no object store is configured.
func NewLoader(objects *minio.Client, logger zerolog.Logger) *Loader {
	return &Loader{
		objects: objects,
		logger:  logger.With().Str("component", "dataset_loader").Logger(),
	}
}

// ParseSource resolves "file://path", "s3://bucket/key" or a bare path.
func (l *Loader) ParseSource(location string) (Source, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		if l.objects == nil {
			return nil, fmt.Errorf("object store not configured for %s", location)
		}
		bucket, key, ok := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid object location %q", location)
		}
		return NewObjectSource(l.objects, bucket, key), nil
	case strings.HasPrefix(location, "file://"):
		return FileSource{Path: strings.TrimPrefix(location, "file://")}, nil
	default:
		return FileSource{Path: location}, nil
	}
}

// Load reads one subject. It never fails: a missing, unreadable or malformed
// dataset yields an empty store, which sessions treat as "data unavailable".
func (l *Loader) Load(ctx context.Context, subject, location string) *Store {
	log := l.logger.With().Str("subject", subject).Str("location", location).Logger()

	src, err := l.ParseSource(location)
	if err != nil {
		log.Warn().Err(err).Msg("dataset unavailable")
		return NewStore(subject, nil)
	}

	rc, err := src.Open(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("dataset unavailable")
		return NewStore(subject, nil)
	}
	defer rc.Close()

	questions, err := Decode(rc)
	if err != nil {
		log.Warn().Err(err).Msg("dataset unreadable")
		return NewStore(subject, nil)
	}

	if err := Validate(questions); err != nil {
		log.Warn().Err(err).Msg("dataset has authoring errors")
	}

	store := NewStore(subject, questions)
	totals := store.Totals()
	log.Info().
		Int("questions", store.Len()).
		Int("single", totals[TypeSingle]).
		Int("multiple", totals[TypeMultiple]).
		Int("judge", totals[TypeJudge]).
		Int("fill", totals[TypeFill]).
		Msg("dataset loaded")
	return store
}

// LoadAll loads every subject into a catalog.
func (l *Loader) LoadAll(ctx context.Context, datasets map[string]string) *Catalog {
	stores := make([]*Store, 0, len(datasets))
	for subject, location := range datasets {
		stores = append(stores, l.Load(ctx, subject, location))
	}
	return NewCatalog(stores...)
}
