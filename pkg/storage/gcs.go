package storage

import (
	"context"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// gcsWriter closes the client once the object has been committed. The
// object is only created when Close succeeds, so Abort cancels the upload
// context before closing.
type gcsWriter struct {
	*gcs.Writer
	client   *gcs.Client
	cancel   context.CancelFunc
	object   string
	finished bool
}

func newGCSWriter(ctx context.Context, bucket, object string, opts Options) (*gcsWriter, error) {
	var clientOpts []option.ClientOption
	if opts.GCSCredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.GCSCredentialsFile))
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create GCS client")
	}

	ctx, cancel := context.WithCancel(ctx)
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	return &gcsWriter{Writer: w, client: client, cancel: cancel, object: object}, nil
}

func (w *gcsWriter) Close() error {
	if w.finished {
		return nil
	}
	w.finished = true
	defer w.cancel()
	err := w.Writer.Close()
	if cerr := w.client.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write GCS object").
			WithDetail("object", w.object)
	}
	return nil
}

func (w *gcsWriter) Abort(error) error {
	if w.finished {
		return nil
	}
	w.finished = true
	w.cancel()
	// Close reports the cancellation; the object is not created
	_ = w.Writer.Close()
	if err := w.client.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to close GCS client").
			WithDetail("object", w.object)
	}
	return nil
}
