package matrix

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/storage"
)

func TestEmit_FailedParquetLeavesNoFile(t *testing.T) {
	sch, err := schema.Parse("message m { required int32 a; }")
	require.NoError(t, err)
	c := &Case{
		Name:    "bad",
		Schema:  sch,
		Records: [][]string{{"1"}, {"x"}, {"3"}},
		Options: DefaultOptions(),
	}

	dir := t.TempDir()
	files, err := Emit(context.Background(), c, storage.Location{Scheme: storage.File, Path: dir}, storage.Options{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.NoFileExists(t, files.Parquet.Path)
	assert.NoFileExists(t, filepath.Join(dir, "bad.json"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("disk full") }

func TestWriteCSV_ReleasesEncoderOnFailure(t *testing.T) {
	row := []string{strings.Repeat("abcdefghij", 5), strings.Repeat("0123456789", 5)}
	c := &Case{Name: "big", Options: DefaultOptions()}
	c.Options.CSVCompression = compression.Zstd
	for i := 0; i < 20000; i++ {
		c.Records = append(c.Records, row)
	}

	base := runtime.NumGoroutine()
	err := writeCSV(failingWriter{}, c)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= base },
		time.Second, 10*time.Millisecond)
}
