package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/prepit/audioproc/internal/config"
)

// Uploaded describes where a local file ended up.
type Uploaded struct {
	Bucket    string
	Path      string
	PublicURL string
}

// FileUploader uploads local artifacts under a configured folder prefix. Public files
// go to the public bucket, everything else to the private one.
type FileUploader struct {
	store        Storage
	bucket       string
	publicBucket string
	prefix       string
}

func NewFileUploader(store Storage, cfg config.StorageConfig) *FileUploader {
	return &FileUploader{
		store:        store,
		bucket:       cfg.Bucket,
		publicBucket: cfg.PublicBucket,
		prefix:       cfg.Prefix,
	}
}

// UploadFile uploads localPath to {prefix}{remoteDir}/{basename}.
func (u *FileUploader) UploadFile(ctx context.Context, localPath, remoteDir string, public bool) (*Uploaded, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	bucket := u.bucket
	if public {
		bucket = u.publicBucket
	}
	objectPath := path.Join(u.prefix, remoteDir, filepath.Base(localPath))

	if err := u.store.Upload(ctx, bucket, objectPath, f, info.Size(), ContentType(localPath)); err != nil {
		return nil, err
	}

	out := &Uploaded{Bucket: bucket, Path: objectPath}
	if public {
		out.PublicURL = u.store.GetPublicURL(bucket, objectPath)
	}
	return out, nil
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
