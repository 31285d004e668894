package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/config"
	"github.com/rs/zerolog/log"
)

// Upload folders.
const (
	FolderAvatars    = "avatars"
	FolderThumbnails = "thumbnails"
)

// AllowedImageExtensions lists valid image extensions
var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// objectBackend is where image bytes end up.
type objectBackend interface {
	put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error)
	remove(ctx context.Context, url string) error
}

type StorageService struct {
	config  *config.Config
	backend objectBackend
}

// NewStorageService picks the backend named by cfg.StorageDriver.
func NewStorageService(ctx context.Context, cfg *config.Config) (*StorageService, error) {
	switch cfg.StorageDriver {
	case "", "local":
		if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
		return &StorageService{config: cfg, backend: &localBackend{
			dir:     cfg.UploadDir,
			baseURL: strings.TrimRight(cfg.AppURL, "/") + "/uploads/",
		}}, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return &StorageService{config: cfg, backend: newS3Backend(s3.NewFromConfig(awsCfg), cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// SaveUpload stores a multipart image under folder/owner and returns its public URL.
func (s *StorageService) SaveUpload(ctx context.Context, folder string, owner uuid.UUID, file *multipart.FileHeader) (string, error) {
	if err := s.validateImage(file.Filename, file.Size); err != nil {
		return "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", apperr.Internal("Failed to read upload", err)
	}
	defer src.Close()
	return s.SaveImage(ctx, folder, owner, file.Filename, file.Size, src)
}

// SaveImage stores r under a generated name keeping filename's extension.
func (s *StorageService) SaveImage(ctx context.Context, folder string, owner uuid.UUID, filename string, size int64, r io.Reader) (string, error) {
	if err := s.validateImage(filename, size); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%s_%d%s", uuid.New().String()[:8], time.Now().Unix(), ext)
	key := path.Join(folder, owner.String(), name)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.backend.put(ctx, key, contentType, size, r)
	if err != nil {
		return "", apperr.Internal("Failed to store image", err)
	}
	return url, nil
}

// Delete removes a stored image by URL. URLs this service did not produce are ignored.
func (s *StorageService) Delete(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	return s.backend.remove(ctx, url)
}

// DeleteBestEffort is Delete for cleanup paths that must not fail.
func (s *StorageService) DeleteBestEffort(ctx context.Context, url string) {
	if s == nil {
		return
	}
	if err := s.Delete(ctx, url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to delete stored image")
	}
}

func (s *StorageService) validateImage(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedImageExtensions[ext] {
		return apperr.Validation(fmt.Sprintf("Invalid file type: %s. Allowed: jpg, jpeg, png, gif, webp", ext))
	}
	if size <= 0 {
		return apperr.Validation("File is empty")
	}
	if size > s.config.MaxImageSize {
		return apperr.Validation(fmt.Sprintf("File too large. Maximum size is %dMB", s.config.MaxImageSize/(1024*1024)))
	}
	return nil
}

type localBackend struct {
	dir     string
	baseURL string
}

func (b *localBackend) put(_ context.Context, key, _ string, _ int64, r io.Reader) (string, error) {
	filePath := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", err
	}

	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", err
	}
	return b.baseURL + key, nil
}

func (b *localBackend) remove(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, b.baseURL)
	if !ok || key == "" {
		return nil
	}
	fullPath := filepath.Join(b.dir, filepath.FromSlash(path.Clean("/" + key)))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// s3API is the part of *s3.Client the backend uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Backend struct {
	client  s3API
	bucket  string
	baseURL string
}

func newS3Backend(client s3API, cfg *config.Config) *s3Backend {
	baseURL := cfg.S3PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}
	return &s3Backend{
		client:  client,
		bucket:  cfg.S3Bucket,
		baseURL: strings.TrimRight(baseURL, "/") + "/",
	}
}

func (b *s3Backend) put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", b.bucket, key, err)
	}
	return b.baseURL + key, nil
}

func (b *s3Backend) remove(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, b.baseURL)
	if !ok || key == "" {
		return nil
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}
