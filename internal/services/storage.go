package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const signedURLSkew = 5 * time.Second

type signedURLEntry struct {
	url       string
	expiresAt time.Time
}

// signedURLCache caches issued signed URLs for slightly less than their
// signature lifetime, so repeated playback requests reuse one signature.
type signedURLCache struct {
	mu      sync.Mutex
	entries map[string]signedURLEntry
	now     func() time.Time
}

func newSignedURLCache(now func() time.Time) *signedURLCache {
	return &signedURLCache{
		entries: make(map[string]signedURLEntry),
		now:     now,
	}
}

func (c *signedURLCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.url, true
}

func (c *signedURLCache) set(key, url string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = signedURLEntry{url: url, expiresAt: c.now().Add(ttl)}
}

// StorageService handles object storage over S3: direct uploads, public
// and signed URLs, and resumable multipart video uploads.
type StorageService struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	region   string
	endpoint string
	urlCache *signedURLCache
}

// NewStorageService creates a new storage service. A nil now defaults to
// time.Now.
func NewStorageService(region, bucket, accessKey, secretKey, endpoint string, now func() time.Time) (*StorageService, error) {
	if now == nil {
		now = time.Now
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &StorageService{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
		region:   region,
		endpoint: endpoint,
		urlCache: newSignedURLCache(now),
	}, nil
}

// objectAbsent reports whether a HeadObject error means the object does
// not exist. Any other error (auth, network) is not absence.
func objectAbsent(err error) bool {
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// Upload stores a blob under a key. With upsert false, an existing object
// under the same key is an error.
func (s *StorageService) Upload(ctx context.Context, key string, body []byte, contentType string, upsert bool) error {
	if !upsert {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return fmt.Errorf("object %s already exists", key)
		}
		if !objectAbsent(err) {
			return fmt.Errorf("failed to check object %s: %w", key, err)
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Delete removes an object by key
func (s *StorageService) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the public URL of an object
func (s *StorageService) PublicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// SignedURL returns a time-limited read URL for a private object. Issued
// URLs are cached until shortly before the signature expires.
func (s *StorageService) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if url, ok := s.urlCache.get(key); ok {
		return url, nil
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL: %w", err)
	}

	cacheTTL := ttl - signedURLSkew
	if cacheTTL > 0 {
		s.urlCache.set(key, request.URL, cacheTTL)
	}

	return request.URL, nil
}

// PresignPut returns a time-limited URL a client can PUT a blob to
// directly, bypassing the API server.
func (s *StorageService) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return request.URL, nil
}

// VideoUploadSession describes an in-progress resumable upload: the client
// PUTs each chunk to its part URL and then calls CompleteVideoUpload.
type VideoUploadSession struct {
	Key      string   `json:"key"`
	UploadID string   `json:"upload_id"`
	PartURLs []string `json:"part_urls"`
}

// CompletedPart identifies one uploaded chunk of a multipart session.
type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// StartVideoUpload opens a resumable multipart upload and presigns a PUT
// URL per part. A failed or interrupted part can simply be re-PUT to its
// URL without restarting the whole upload.
func (s *StorageService) StartVideoUpload(ctx context.Context, key, contentType string, parts int, ttl time.Duration) (*VideoUploadSession, error) {
	if parts <= 0 {
		return nil, fmt.Errorf("part count must be positive")
	}

	create, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start multipart upload: %w", err)
	}

	session := &VideoUploadSession{
		Key:      key,
		UploadID: aws.ToString(create.UploadId),
		PartURLs: make([]string, 0, parts),
	}

	for part := 1; part <= parts; part++ {
		request, err := s.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(key),
			UploadId:   create.UploadId,
			PartNumber: aws.Int32(int32(part)),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = ttl
		})
		if err != nil {
			return nil, fmt.Errorf("failed to presign part %d: %w", part, err)
		}
		session.PartURLs = append(session.PartURLs, request.URL)
	}

	return session, nil
}

// CompleteVideoUpload finishes a multipart upload from the uploaded parts
func (s *StorageService) CompleteVideoUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(part.PartNumber),
			ETag:       aws.String(part.ETag),
		})
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

// AbortVideoUpload abandons a multipart upload and frees its stored parts
func (s *StorageService) AbortVideoUpload(ctx context.Context, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("failed to abort multipart upload: %w", err)
	}
	return nil
}
