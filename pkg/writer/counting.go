package writer

import (
	"github.com/ajitpratap0/csvparquet/pkg/metrics"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

// countingSink counts the values of the record in progress so that only
// accepted records are reported.
type countingSink struct {
	shred.ColumnSink
	pending [len(schema.Kinds)]int
}

func (s *countingSink) count(k schema.Kind, err error) error {
	if err == nil {
		s.pending[k]++
	}
	return err
}

func (s *countingSink) AddBool(v bool) error {
	return s.count(schema.Bool, s.ColumnSink.AddBool(v))
}

func (s *countingSink) AddInt32(v int32) error {
	return s.count(schema.Int32, s.ColumnSink.AddInt32(v))
}

func (s *countingSink) AddInt64(v int64) error {
	return s.count(schema.Int64, s.ColumnSink.AddInt64(v))
}

func (s *countingSink) AddFloat(v float32) error {
	return s.count(schema.Float, s.ColumnSink.AddFloat(v))
}

func (s *countingSink) AddDouble(v float64) error {
	return s.count(schema.Double, s.ColumnSink.AddDouble(v))
}

func (s *countingSink) AddBinary(v []byte) error {
	return s.count(schema.Binary, s.ColumnSink.AddBinary(v))
}

func (s *countingSink) commit(c *metrics.Collector) {
	for k, n := range s.pending {
		c.ValuesEmitted(schema.Kind(k).String(), n)
	}
	s.reset()
}

func (s *countingSink) reset() {
	s.pending = [len(schema.Kinds)]int{}
}
