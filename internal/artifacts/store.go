package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"podforge/internal/config"
	"podforge/internal/logging"
	"podforge/internal/services"
)

var accessPointAliasPattern = regexp.MustCompile(`//([^/-]+)-s3alias`)

// Store moves artifacts between the local tier and the object tier.
//
// The S3 client is owned by the store: it is created on first configured use
// under the mutex and reused for the process lifetime. Configuration checks
// stay uncached so credentials supplied to a running daemon take effect on
// the next call.
type Store struct {
	cfg    *config.Config
	logger *slog.Logger

	mu         sync.Mutex
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	presigner  *s3.PresignClient
}

// NewStore builds an artifact store over the given configuration.
func NewStore(cfg *config.Config, logger *slog.Logger) *Store {
	return &Store{cfg: cfg, logger: logging.NewComponentLogger(logger, "artifacts")}
}

func (s *Store) envOrConfig(envKey, fileValue string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return strings.TrimSpace(fileValue)
}

func (s *Store) rawBucket() string {
	return s.envOrConfig("S3_BUCKET_NAME", s.cfg.ObjectStore.Bucket)
}

func (s *Store) endpoint() string {
	return s.envOrConfig("S3_ENDPOINT_URL", s.cfg.ObjectStore.Endpoint)
}

func (s *Store) region() string {
	if v := s.envOrConfig("S3_REGION", s.cfg.ObjectStore.Region); v != "" {
		return v
	}
	return "us-east-1"
}

// BucketName resolves the effective bucket identity. An access-point alias
// embedded in the endpoint URL wins, then an access-point ARN degrades to
// its trailing name, then the raw configured value is used as-is.
func (s *Store) BucketName() string {
	raw := s.rawBucket()
	if raw == "" {
		return ""
	}
	endpoint := s.endpoint()
	if endpoint != "" && strings.Contains(endpoint, "accesspoint") && strings.Contains(endpoint, "-s3alias") {
		if m := accessPointAliasPattern.FindStringSubmatch(endpoint); m != nil {
			return m[1]
		}
	}
	if strings.HasPrefix(raw, "arn:aws:s3:") {
		parts := strings.Split(raw, ":")
		if len(parts) >= 6 {
			resource := parts[5]
			if idx := strings.LastIndex(resource, "/"); idx >= 0 {
				return resource[idx+1:]
			}
			return resource
		}
	}
	return raw
}

// Configured reports whether the object tier can be used. Evaluated fresh on
// every call; a false result is never cached because credentials may appear
// in the environment while the daemon runs.
func (s *Store) Configured() bool {
	return s.BucketName() != "" &&
		os.Getenv("AWS_ACCESS_KEY_ID") != "" &&
		os.Getenv("AWS_SECRET_ACCESS_KEY") != ""
}

func (s *Store) ensureClient(ctx context.Context) (*s3.Client, *manager.Uploader, *manager.Downloader, *s3.PresignClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, s.uploader, s.downloader, s.presigner, nil
	}

	creds := credentials.NewStaticCredentialsProvider(
		os.Getenv("AWS_ACCESS_KEY_ID"),
		os.Getenv("AWS_SECRET_ACCESS_KEY"),
		os.Getenv("AWS_SESSION_TOKEN"),
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.region()),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, nil, nil, nil, services.Wrap(services.ErrStorage, "artifacts", "client", "load aws config", err)
	}

	endpoint := s.endpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			// Custom endpoints (MinIO and friends) need path-style keys;
			// virtual-host addressing would prepend the bucket to the host.
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	partSize := int64(s.cfg.ObjectStore.UploadPartMB) * 1024 * 1024
	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}

	s.client = client
	s.uploader = manager.NewUploader(client, func(u *manager.Uploader) { u.PartSize = partSize })
	s.downloader = manager.NewDownloader(client, func(d *manager.Downloader) { d.PartSize = partSize })
	s.presigner = s3.NewPresignClient(client)
	return s.client, s.uploader, s.downloader, s.presigner, nil
}

// Upload copies a local file into the object tier and returns the canonical
// s3://bucket/key reference. The local file is left in place; the caller
// decides whether to remove it after a successful upload.
func (s *Store) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	if !s.Configured() {
		return "", services.Wrap(services.ErrStorage, "artifacts", "upload", "object tier not configured", nil)
	}
	bucket := s.BucketName()
	_, uploader, _, _, err := s.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "artifacts", "upload", fmt.Sprintf("open %s", localPath), err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := uploader.Upload(ctx, input); err != nil {
		return "", services.Wrap(services.ErrStorage, "artifacts", "upload", fmt.Sprintf("put %s", key), err)
	}

	s.logger.InfoContext(ctx, "uploaded artifact",
		logging.String("bucket", bucket),
		logging.String("key", key))
	return ObjectScheme + bucket + "/" + key, nil
}

// Delete removes the artifact a reference points at. Cleanup is best-effort:
// missing files, unconfigured tiers, and transfer failures are logged and
// swallowed so entity deletion never blocks on storage.
func (s *Store) Delete(ctx context.Context, ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}
	if IsObjectRef(ref) {
		s.deleteObject(ctx, ref)
		return
	}
	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnContext(ctx, "failed to delete local artifact",
			logging.String("path", ref),
			logging.Error(err))
	}
}

func (s *Store) deleteObject(ctx context.Context, ref string) {
	_, key, ok := ParseObjectRef(ref)
	if !ok {
		s.logger.WarnContext(ctx, "invalid object reference", logging.String("ref", ref))
		return
	}
	if !s.Configured() {
		s.logger.WarnContext(ctx, "object tier not configured, skipping object delete",
			logging.String("key", key))
		return
	}
	client, _, _, _, err := s.ensureClient(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "object client unavailable", logging.Error(err))
		return
	}
	// Deletes always run against the currently configured bucket; the
	// reference's bucket segment is informational.
	bucket := s.BucketName()
	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to delete object",
			logging.String("key", key),
			logging.Error(err))
	}
}

// PresignedURL returns a time-limited direct URL for an object key. It is
// empty whenever the object tier is unconfigured or signing fails; neither
// case is an error.
func (s *Store) PresignedURL(ctx context.Context, key string, ttl time.Duration) string {
	if !s.Configured() {
		return ""
	}
	if ttl <= 0 {
		ttl = time.Duration(s.cfg.ObjectStore.PresignTTL) * time.Second
	}
	_, _, _, presigner, err := s.ensureClient(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "object client unavailable", logging.Error(err))
		return ""
	}
	bucket := s.BucketName()
	out, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to presign object",
			logging.String("key", key),
			logging.Error(err))
		return ""
	}
	return out.URL
}
