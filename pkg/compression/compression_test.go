package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

var sample = []byte(strings.Repeat("true,1,2,3.5,-4.25,abc\nfalse,,9,,1e10,x|y|z\n", 200))

func compress(t *testing.T, data []byte, alg Algorithm, level Level) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, alg, level)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	for _, alg := range Algorithms {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				compressed := compress(t, sample, alg, level)
				if alg != None {
					assert.Less(t, len(compressed), len(sample))
				}

				r, err := NewReader(bytes.NewReader(compressed), alg)
				require.NoError(t, err)
				defer r.Close()
				out, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, sample, out)
			})
		}
	}
}

func TestStreaming(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Zstd, Default)
	require.NoError(t, err)
	for _, line := range bytes.SplitAfter(sample, []byte("\n")) {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, Zstd)
	require.NoError(t, err)
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, out)
}

func TestDetectAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"data.csv":        None,
		"data.csv.gz":     Gzip,
		"DATA.CSV.GZ":     Gzip,
		"data.csv.zst":    Zstd,
		"data.csv.lz4":    LZ4,
		"data.csv.sz":     Snappy,
		"data.csv.snappy": Snappy,
		"data.csv.s2":     S2,
		"noext":           None,
	}
	for path, want := range tests {
		assert.Equal(t, want, DetectAlgorithm(path), path)
	}
}

func TestExtensionMatchesDetection(t *testing.T) {
	for _, alg := range Algorithms {
		assert.Equal(t, alg, DetectAlgorithm("x.csv"+alg.Extension()))
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)

	a, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	_, err = ParseAlgorithm("brotli")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewReader_CorruptGzip(t *testing.T) {
	_, err := NewReader(strings.NewReader("not gzip"), Gzip)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}
