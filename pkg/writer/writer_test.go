package writer

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/input"
	"github.com/ajitpratap0/csvparquet/pkg/inspect"
	"github.com/ajitpratap0/csvparquet/pkg/metrics"
	"github.com/ajitpratap0/csvparquet/pkg/parquetsink"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Parse(`message m {
  required boolean a;
  optional int32 b;
  repeated double c;
}`)
	require.NoError(t, err)
	return sch
}

type sliceReader struct {
	recs [][]string
	pos  int
}

func (r *sliceReader) Read() ([]string, error) {
	if r.pos == len(r.recs) {
		return nil, io.EOF
	}
	r.pos++
	return r.recs[r.pos-1], nil
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	recs := [][]string{
		{"true", "", "1.5|2.5"},
		{"false", "42", ""},
		{"true", "-1", "3"},
	}
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, int64(3), stats.RecordsWritten)
	assert.Equal(t, int64(0), stats.RecordsSkipped)
	assert.Equal(t, 1, stats.RowGroups)

	table, err := inspect.ReadBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, recs, table.Records())
}

func TestWriter_FailureIsSticky(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t))
	require.NoError(t, err)

	require.NoError(t, w.Write([]string{"true", "1", ""}))

	err = w.Write([]string{"true", "x", ""})
	var pe *shred.ValueParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Position)

	assert.Same(t, err, w.Write([]string{"false", "", ""}))

	// the partial record is dropped and reported when the file is finished
	require.Error(t, w.Close())
	table, err := inspect.ReadBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"true", "1", ""}}, table.Records())
}

func TestWriter_SkipInvalid(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg, "skip")

	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t),
		WithLogger(zap.New(core)),
		WithMetrics(collector),
		WithSkipInvalid(true))
	require.NoError(t, err)

	for _, rec := range [][]string{
		{"true", "1", "1|2"},
		{"true", "1"},
		{"true", "2", "1|oops"},
		{"", "3", "4"},
		{"false", "", "5"},
	} {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, int64(2), stats.RecordsWritten)
	assert.Equal(t, int64(3), stats.RecordsSkipped)
	assert.Equal(t, 3, logs.FilterMessage("skipping invalid record").Len())

	table, err := inspect.ReadBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"true", "1", "1|2"}, {"false", "", "5"}}, table.Records())

	rejected, err := testutil.GatherAndCount(reg, "csvparquet_records_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 3, rejected)
}

func TestWriter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg, "metrics")

	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t), WithMetrics(collector))
	require.NoError(t, err)

	require.NoError(t, w.Write([]string{"true", "1", "1|2|3"}))
	require.Error(t, w.Write([]string{"true"}))
	require.NoError(t, w.Close())

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				if l.GetName() != "target" {
					key += "/" + l.GetValue()
				}
			}
			if m.GetCounter() != nil {
				got[key] = m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, got["csvparquet_records_written_total"])
	assert.Equal(t, 1.0, got["csvparquet_records_rejected_total/arity"])
	assert.Equal(t, 1.0, got["csvparquet_values_emitted_total/boolean"])
	assert.Equal(t, 1.0, got["csvparquet_values_emitted_total/int32"])
	assert.Equal(t, 3.0, got["csvparquet_values_emitted_total/double"])
	assert.Equal(t, 1.0, got["csvparquet_row_groups_flushed_total"])
}

func TestWriter_WriteAll(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t), WithSinkOptions(parquetsink.Options{Compression: "zstd"}))
	require.NoError(t, err)

	r, err := input.NewReader(strings.NewReader("true,,1|2\nfalse,7,\n"), input.DefaultOptions())
	require.NoError(t, err)

	n, err := w.WriteAll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, w.Close())

	table, err := inspect.ReadBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"true", "", "1|2"}, {"false", "7", ""}}, table.Records())
}

func TestWriter_WriteAllCancelled(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := w.WriteAll(ctx, &sliceReader{recs: [][]string{{"true", "", ""}}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), n)
	require.NoError(t, w.Close())
}

func TestWriter_WriteAllReadError(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t))
	require.NoError(t, err)

	r, err := input.NewReader(strings.NewReader("true,1,\n\"broken\n"), input.DefaultOptions())
	require.NoError(t, err)

	n, err := w.WriteAll(context.Background(), r)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Equal(t, int64(1), n)
}

func TestWriter_ClosedWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf, testSchema(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	err = w.Write([]string{"true", "", ""})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProtocol))
}

func TestNew_BadOptions(t *testing.T) {
	_, err := New(io.Discard, testSchema(t), WithSinkOptions(parquetsink.Options{Compression: "rar"}))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
