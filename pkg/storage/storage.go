// Package storage opens the destinations parquet and generated files are
// written to: local paths, Amazon S3 objects and Google Cloud Storage
// objects, all addressed by URI.
//
//	out, err := storage.Create(ctx, "s3://bucket/data/orders.parquet", storage.Options{})
//	defer out.Close()
//
// Writes to object stores are streamed; Close completes the upload and
// reports its result. Abort discards the output instead, so a failed
// conversion never publishes a partial file.
package storage

import (
	"context"
	stderrors "errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// Scheme identifies a storage backend.
type Scheme string

const (
	// File is the local filesystem
	File Scheme = "file"
	// S3 is Amazon S3
	S3 Scheme = "s3"
	// GCS is Google Cloud Storage
	GCS Scheme = "gs"
)

// Location is a parsed destination URI.
type Location struct {
	Scheme Scheme
	Bucket string
	// Path is the file path for File and the object key otherwise.
	Path string
}

func (l Location) String() string {
	if l.Scheme == File {
		return l.Path
	}
	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Path
}

// Join returns the location of name inside l, treating l as a directory.
func (l Location) Join(name string) Location {
	if l.Scheme == File {
		l.Path = filepath.Join(l.Path, name)
		return l
	}
	l.Path = strings.TrimSuffix(l.Path, "/")
	if l.Path == "" {
		l.Path = name
	} else {
		l.Path += "/" + name
	}
	return l
}

// Writer is an output opened by Create. Close commits the written bytes;
// Abort drops them and leaves no file or object behind. Only the first of
// Close and Abort has an effect.
type Writer interface {
	io.WriteCloser
	Abort(cause error) error
}

// errAborted is the cause used when Abort is called without one.
var errAborted = stderrors.New("output aborted")

// Options configures the object store clients.
type Options struct {
	S3Region      string `yaml:"s3_region" mapstructure:"s3_region"`
	S3PartSize    int64  `yaml:"s3_part_size" mapstructure:"s3_part_size"`
	S3Concurrency int    `yaml:"s3_concurrency" mapstructure:"s3_concurrency"`

	GCSCredentialsFile string `yaml:"gcs_credentials_file" mapstructure:"gcs_credentials_file"`

	// ContentType is set on uploaded objects when not empty.
	ContentType string `yaml:"-" mapstructure:"-"`
}

// ParseURI parses a destination. Bare paths and file:// URIs are local;
// s3:// and gs:// URIs need both a bucket and an object key.
func ParseURI(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New(errors.ErrorTypeConfig, "empty storage URI")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: File, Path: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid storage URI").
			WithDetail("uri", uri)
	}

	switch Scheme(u.Scheme) {
	case File:
		p := u.Path
		if u.Host != "" {
			p = u.Host + p
		}
		if p == "" {
			return Location{}, errors.Newf(errors.ErrorTypeConfig, "missing path in %q", uri)
		}
		return Location{Scheme: File, Path: p}, nil
	case S3, GCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" {
			return Location{}, errors.Newf(errors.ErrorTypeConfig, "missing bucket in %q", uri)
		}
		return Location{Scheme: Scheme(u.Scheme), Bucket: u.Host, Path: key}, nil
	}
	return Location{}, errors.Newf(errors.ErrorTypeConfig, "unsupported storage scheme %q", u.Scheme)
}

// Create opens uri for writing, replacing any existing file or object.
func Create(ctx context.Context, uri string, opts Options) (Writer, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return CreateAt(ctx, loc, opts)
}

// CreateAt opens a parsed location for writing.
func CreateAt(ctx context.Context, loc Location, opts Options) (Writer, error) {
	if loc.Scheme != File && (loc.Path == "" || strings.HasSuffix(loc.Path, "/")) {
		return nil, errors.Newf(errors.ErrorTypeConfig, "missing object key in %s", loc)
	}

	switch loc.Scheme {
	case File:
		return createFile(loc.Path)
	case S3:
		up, err := newS3Uploader(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewS3Writer(ctx, up, loc.Bucket, loc.Path, opts.ContentType), nil
	case GCS:
		w, err := newGCSWriter(ctx, loc.Bucket, loc.Path, opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported storage scheme %q", loc.Scheme)
}

// fileWriter removes the file when aborted.
type fileWriter struct {
	*os.File
	done bool
}

func createFile(path string) (*fileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
				WithDetail("path", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", path)
	}
	return &fileWriter{File: f}, nil
}

func (w *fileWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.File.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output file").
			WithDetail("path", w.Name())
	}
	return nil
}

func (w *fileWriter) Abort(error) error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.File.Close()
	if err := os.Remove(w.Name()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to remove aborted output").
			WithDetail("path", w.Name())
	}
	return nil
}
