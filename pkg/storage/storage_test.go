package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri  string
		want Location
	}{
		{"out.parquet", Location{Scheme: File, Path: "out.parquet"}},
		{"/tmp/x/out.parquet", Location{Scheme: File, Path: "/tmp/x/out.parquet"}},
		{"file:///tmp/out.parquet", Location{Scheme: File, Path: "/tmp/out.parquet"}},
		{"file://relative/out.parquet", Location{Scheme: File, Path: "relative/out.parquet"}},
		{"s3://bucket/a/b.parquet", Location{Scheme: S3, Bucket: "bucket", Path: "a/b.parquet"}},
		{"gs://bucket/obj", Location{Scheme: GCS, Bucket: "bucket", Path: "obj"}},
		{"s3://bucket", Location{Scheme: S3, Bucket: "bucket", Path: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURI_Errors(t *testing.T) {
	for _, uri := range []string{"", "ftp://host/x", "s3:///key", "file://"} {
		_, err := ParseURI(uri)
		require.Error(t, err, uri)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), uri)
	}
}

func TestLocation_Join(t *testing.T) {
	loc, err := ParseURI("s3://bucket/prefix/")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/prefix/a.parquet", loc.Join("a.parquet").String())

	root, err := ParseURI("gs://bucket")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/a.json", root.Join("a.json").String())

	dir := Location{Scheme: File, Path: "out"}
	assert.Equal(t, filepath.Join("out", "a.csv"), dir.Join("a.csv").String())
}

func TestCreate_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.bin")

	w, err := Create(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCreate_AbortRemovesLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")

	w, err := Create(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = w.Write([]byte("PAR1 partial"))
	require.NoError(t, err)
	require.NoError(t, w.Abort(stderrors.New("bad record")))

	assert.NoFileExists(t, path)
	assert.NoError(t, w.Close(), "close after abort is a no-op")
	assert.NoFileExists(t, path)
}

func TestCreate_AbortAfterCloseKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")

	w, err := Create(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = w.Write([]byte("done"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Abort(nil))

	assert.FileExists(t, path)
}

func TestCreate_MissingObjectKey(t *testing.T) {
	_, err := Create(context.Background(), "s3://bucket/dir/", Options{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

type fakeUploader struct {
	body      bytes.Buffer
	input     *s3.PutObjectInput
	failAt    int
	err       error
	completed bool
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	if f.err != nil {
		if _, err := io.CopyN(&f.body, input.Body, int64(f.failAt)); err != nil {
			return nil, err
		}
		return nil, f.err
	}
	if _, err := io.Copy(&f.body, input.Body); err != nil {
		return nil, err
	}
	f.completed = true
	return &manager.UploadOutput{Location: "s3://" + aws.ToString(input.Bucket) + "/" + aws.ToString(input.Key)}, nil
}

func TestS3Writer_Streams(t *testing.T) {
	up := &fakeUploader{}
	w := NewS3Writer(context.Background(), up, "bucket", "data/out.parquet", "application/vnd.apache.parquet")

	for i := 0; i < 100; i++ {
		_, err := w.Write([]byte("0123456789"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	assert.Equal(t, 1000, up.body.Len())
	assert.Equal(t, "bucket", aws.ToString(up.input.Bucket))
	assert.Equal(t, "data/out.parquet", aws.ToString(up.input.Key))
	assert.Equal(t, "application/vnd.apache.parquet", aws.ToString(up.input.ContentType))
}

func TestS3Writer_UploadFailure(t *testing.T) {
	failure := stderrors.New("access denied")
	up := &fakeUploader{failAt: 10, err: failure}
	w := NewS3Writer(context.Background(), up, "bucket", "key", "")

	var writeErr error
	for i := 0; i < 100 && writeErr == nil; i++ {
		_, writeErr = w.Write([]byte("0123456789"))
	}
	require.Error(t, writeErr)

	err := w.Close()
	require.ErrorIs(t, err, failure)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
	assert.Nil(t, up.input.ContentType)
}

func TestS3Writer_Abort(t *testing.T) {
	up := &fakeUploader{}
	w := NewS3Writer(context.Background(), up, "bucket", "out.parquet", "")

	_, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Abort(stderrors.New("bad record")))

	assert.False(t, up.completed)
	assert.NoError(t, w.Close())
	assert.False(t, up.completed)
}
