package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/config"
	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/utils"
)

// UploadsPrefix is the public path under which stored files are served and
// the relative path recorded on image rows.
const UploadsPrefix = "uploads"

// MediaStore persists uploaded files
type MediaStore interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) error
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}

// LocalMediaStore writes files into a directory on disk
type LocalMediaStore struct {
	dir string
}

// NewLocalMediaStore creates dir if needed.
func NewLocalMediaStore(dir string) (*LocalMediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalMediaStore{dir: dir}, nil
}

func (s *LocalMediaStore) Save(_ context.Context, filename, _ string, r io.Reader, _ int64) error {
	f, err := os.OpenFile(filepath.Join(s.dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *LocalMediaStore) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	if !utils.IsSafeFilename(filename) {
		return nil, ErrFileNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	return f, err
}

// MinioMediaStore writes files into an S3-compatible bucket
type MinioMediaStore struct {
	client *minio.Client
	bucket string
}

// NewMinioMediaStore connects to MinIO and makes sure the bucket exists.
func NewMinioMediaStore(ctx context.Context, cfg config.MediaConfig) (*MinioMediaStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioMediaStore{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *MinioMediaStore) Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, filename, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioMediaStore) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	if !utils.IsSafeFilename(filename) {
		return nil, ErrFileNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, filename, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return obj, nil
}

// NewMediaStore picks the backend named by cfg.Driver.
func NewMediaStore(ctx context.Context, cfg config.MediaConfig) (MediaStore, error) {
	if cfg.Driver == "minio" {
		return NewMinioMediaStore(ctx, cfg)
	}
	return NewLocalMediaStore(cfg.UploadDir)
}

// MediaIntake names and persists uploaded booking images
type MediaIntake struct {
	store     MediaStore
	maxImages int
	log       *zap.Logger
	now       func() time.Time
}

func NewMediaIntake(store MediaStore, maxImages int, log *zap.Logger) *MediaIntake {
	return &MediaIntake{store: store, maxImages: maxImages, log: log, now: time.Now}
}

// MaxImages is the per-booking upload cap.
func (m *MediaIntake) MaxImages() int {
	return m.maxImages
}

// StoreImages writes every file under a generated name. Files written before
// a failure are left in place.
func (m *MediaIntake) StoreImages(ctx context.Context, files []*multipart.FileHeader) ([]models.StoredFile, error) {
	if m.maxImages > 0 && len(files) > m.maxImages {
		return nil, invalid("images", "a maximum of %d images is allowed", m.maxImages)
	}

	stored := make([]models.StoredFile, 0, len(files))
	for _, fh := range files {
		file, err := m.storeOne(ctx, fh)
		if err != nil {
			m.log.Error("image upload failed",
				zap.String("filename", fh.Filename),
				zap.Int("already_stored", len(stored)),
				zap.Error(err))
			return stored, fmt.Errorf("store image %q: %w", fh.Filename, err)
		}
		stored = append(stored, file)
	}
	return stored, nil
}

func (m *MediaIntake) storeOne(ctx context.Context, fh *multipart.FileHeader) (models.StoredFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.StoredFile{}, err
	}
	defer src.Close()

	name := utils.UploadFilename(fh.Filename, m.now())
	if err := m.store.Save(ctx, name, fh.Header.Get("Content-Type"), src, fh.Size); err != nil {
		return models.StoredFile{}, err
	}
	return models.StoredFile{Filename: name, Path: path.Join(UploadsPrefix, name)}, nil
}

// Open streams a stored file by name.
func (m *MediaIntake) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return m.store.Open(ctx, filename)
}
