package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"podforge/internal/services"
)

// Stream is an open read session for one artifact. Close releases the
// underlying file and removes it when it is a temporary object-tier copy;
// the temp file never outlives the session.
type Stream struct {
	file    *os.File
	temp    bool
	Name    string
	Size    int64
	ModTime time.Time
}

// Reader exposes the content for http.ServeContent and io.Copy.
func (s *Stream) Reader() io.ReadSeeker {
	return s.file
}

// Close closes the stream and deletes the backing temp file if any.
func (s *Stream) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	if s.temp {
		if rmErr := os.Remove(s.file.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = rmErr
		}
	}
	return err
}

// RetrieveForStreaming opens an artifact for reading regardless of tier. An
// object reference is downloaded to a temporary file first; a local
// reference is opened in place. Missing artifacts surface as not-found
// errors so API surfaces can answer 404.
func (s *Store) RetrieveForStreaming(ctx context.Context, ref string) (*Stream, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "retrieve", "empty artifact reference", nil)
	}
	if IsObjectRef(ref) {
		return s.retrieveObject(ctx, ref)
	}
	return openLocal(ref)
}

func openLocal(localPath string) (*Stream, error) {
	file, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "artifacts", "retrieve", fmt.Sprintf("audio missing at %s", localPath), err)
		}
		return nil, services.Wrap(services.ErrStorage, "artifacts", "retrieve", fmt.Sprintf("open %s", localPath), err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, services.Wrap(services.ErrStorage, "artifacts", "retrieve", "stat audio file", err)
	}
	return &Stream{
		file:    file,
		Name:    filepath.Base(localPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (s *Store) retrieveObject(ctx context.Context, ref string) (*Stream, error) {
	_, key, ok := ParseObjectRef(ref)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "retrieve", fmt.Sprintf("invalid object reference %q", ref), nil)
	}
	if !s.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "retrieve", "object tier not configured", nil)
	}
	_, _, downloader, _, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "podforge-audio-*.mp3")
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "artifacts", "retrieve", "create temp file", err)
	}
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	bucket := s.BucketName()
	if _, err := downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		discard()
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, services.Wrap(services.ErrNotFound, "artifacts", "retrieve", fmt.Sprintf("object %s missing", key), err)
		}
		return nil, services.Wrap(services.ErrStorage, "artifacts", "retrieve", fmt.Sprintf("download %s", key), err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard()
		return nil, services.Wrap(services.ErrStorage, "artifacts", "retrieve", "rewind temp file", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		discard()
		return nil, services.Wrap(services.ErrStorage, "artifacts", "retrieve", "stat temp file", err)
	}
	return &Stream{
		file:    tmp,
		temp:    true,
		Name:    path.Base(key),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
