package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/config"
)

// ErrNoPublicURL is returned when a stored object path cannot be turned into
// a fetchable URL.
var ErrNoPublicURL = errors.New("no public url for stored object")

// ErrForbiddenKey is returned for stored paths outside the asset prefixes.
// Rendered artifacts share the bucket and are never handed out this way.
var ErrForbiddenKey = errors.New("stored object is not an asset")

// DefaultAssetPrefixes apply when Storage.AssetPrefixes is empty.
var DefaultAssetPrefixes = []string{"logos/", "media/"}

const presignExpiry = 15 * time.Minute

// ObjectAPI is the part of the S3 client the storage layer calls. It is
// satisfied by *s3.Client and by test doubles.
type ObjectAPI interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner signs GET requests for objects in a private bucket.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
}

// PresignedRequest is the signed URL handed to asset fetches.
type PresignedRequest struct {
	URL string
}

type presignClient struct {
	client *s3.PresignClient
}

func (p *presignClient) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL}, nil
}

// Storage keeps rendered proposals in a bucket and resolves stored image
// paths (listing photos, user logos) into URLs the asset fetcher can load.
type Storage struct {
	Client        ObjectAPI
	Presigner     Presigner
	Bucket        string
	PublicBaseURL string
	// AssetPrefixes are the key prefixes ResolveURL may hand out.
	AssetPrefixes []string
	Log           *zap.SugaredLogger
}

// NewClient builds an S3 client for the configured endpoint. A custom
// endpoint (minio in development) is addressed path-style.
func NewClient(cfg *config.ProposalConfig) *s3.Client {
	scfg := cfg.StorageConfig

	creds := aws.CredentialsProviderFunc(func(c context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     scfg.AccessKey,
			SecretAccessKey: scfg.SecretKey,
		}, nil
	})

	s3cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: creds,
	}

	return s3.NewFromConfig(s3cfg, func(o *s3.Options) {
		if scfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(scfg.Endpoint, scfg.UseSSL))
			o.UsePathStyle = true
		}
	})
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func NewStorage(cfg *config.ProposalConfig, log *zap.SugaredLogger) *Storage {
	client := NewClient(cfg)
	log.Infof("s3 client configured")
	return &Storage{
		Client:        client,
		Presigner:     &presignClient{client: s3.NewPresignClient(client)},
		Bucket:        cfg.StorageConfig.Bucket,
		PublicBaseURL: cfg.StorageConfig.PublicBaseURL,
		AssetPrefixes: cfg.StorageConfig.AssetPrefixes,
		Log:           log,
	}
}

// ArtifactKey is the object key of a rendered proposal.
func ArtifactKey(organizationID, proposalID, filename string) string {
	return path.Join(organizationID, proposalID, filename)
}

func (s *Storage) Upload(ctx context.Context, key, contentType string, data []byte) (err error) {
	defer func() { observeOp(opUpload, err) }()
	uploader := manager.NewUploader(s.Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10 MiB
	})

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	artifactBytes.Observe(float64(len(data)))
	s.Log.Debugw("uploaded artifact", "key", key, "size", len(data))
	return nil
}

func (s *Storage) Download(ctx context.Context, key string) (_ []byte, err error) {
	defer func() { observeOp(opDownload, err) }()
	downloader := manager.NewDownloader(s.Client)
	buf := manager.NewWriteAtBuffer([]byte{})
	if _, err = downloader.Download(ctx, buf, &s3.GetObjectInput{Bucket: &s.Bucket, Key: &key}); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *Storage) Delete(ctx context.Context, key string) (err error) {
	defer func() { observeOp(opDelete, err) }()
	if _, err = s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.Bucket, Key: &key}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ResolveURL turns a stored object path into a fetchable URL. Absolute URLs
// pass through. With a public base URL the path is appended to it;
// otherwise a short-lived presigned URL is issued. Only keys under one of
// the asset prefixes are resolved.
func (s *Storage) ResolveURL(ref string) (string, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return ref, nil
	}
	key := strings.TrimLeft(ref, "/")
	if key == "" {
		return "", ErrNoPublicURL
	}
	if !s.isAsset(key) {
		return "", fmt.Errorf("%w: %s", ErrForbiddenKey, ref)
	}

	if s.PublicBaseURL != "" {
		return strings.TrimRight(s.PublicBaseURL, "/") + "/" + key, nil
	}
	if s.Presigner == nil {
		return "", fmt.Errorf("%w: %s", ErrNoPublicURL, ref)
	}
	req, err := s.Presigner.PresignGetObject(context.Background(), &s3.GetObjectInput{Bucket: &s.Bucket, Key: &key}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *Storage) isAsset(key string) bool {
	if path.Clean(key) != key {
		return false
	}
	prefixes := s.AssetPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultAssetPrefixes
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) && len(key) > len(p) {
			return true
		}
	}
	return false
}
