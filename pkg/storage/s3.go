package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// Uploader is the part of manager.Uploader used to stream objects to S3.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

func newS3Uploader(ctx context.Context, opts Options) (Uploader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to load AWS configuration")
	}

	return manager.NewUploader(s3.NewFromConfig(cfg), func(u *manager.Uploader) {
		if opts.S3PartSize > 0 {
			u.PartSize = opts.S3PartSize
		}
		if opts.S3Concurrency > 0 {
			u.Concurrency = opts.S3Concurrency
		}
	}), nil
}

// s3Writer feeds an upload running in the background through a pipe.
type s3Writer struct {
	pw       *io.PipeWriter
	done     chan error
	key      string
	finished bool
}

// NewS3Writer starts a streaming upload of bucket/key through up. Bytes
// written are sent as the object body; Close waits for the upload to finish.
// Abort fails the body read, which makes the uploader abandon the multipart
// upload without creating the object.
func NewS3Writer(ctx context.Context, up Uploader, bucket, key, contentType string) Writer {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1), key: key}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	go func() {
		_, err := up.Upload(ctx, input)
		// unblock writers if the upload stopped reading early
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeStorage, "s3 upload failed").WithDetail("key", w.key)
	}
	return n, nil
}

func (w *s3Writer) Close() error {
	if w.finished {
		return nil
	}
	w.finished = true
	w.pw.Close()
	if err := <-w.done; err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "s3 upload failed").WithDetail("key", w.key)
	}
	return nil
}

func (w *s3Writer) Abort(cause error) error {
	if w.finished {
		return nil
	}
	w.finished = true
	if cause == nil {
		cause = errAborted
	}
	w.pw.CloseWithError(cause)
	// the upload can only end in error once its body fails
	<-w.done
	return nil
}
