// Package matrix generates parquet test files covering combinations of
// column repetition, column type and column count.
//
// Each Case has a schema named "m" with columns var_0 ... var_n-1, a set of
// deterministic random records, and a name of the form
// <PATTERN>_<n>cols_<firsttype>[_rot]. Emit writes the case as a parquet
// file, a JSON description and the CSV input that produces the file.
package matrix

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/parquetsink"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

// Pattern assigns a repetition to each column position.
type Pattern string

const (
	AllRequired         Pattern = "ALL_REQUIRED"
	AllOptional         Pattern = "ALL_OPTIONAL"
	AllRepeated         Pattern = "ALL_REPEATED"
	MixRequiredOptional Pattern = "MIX_REQUIRED_OPTIONAL"
	MixRepeatedRequired Pattern = "MIX_REPEATED_REQUIRED"
	MixOptionalRepeated Pattern = "MIX_OPTIONAL_REPEATED"
)

// Patterns lists every pattern.
var Patterns = []Pattern{
	AllRequired, AllOptional, AllRepeated,
	MixRequiredOptional, MixRepeatedRequired, MixOptionalRepeated,
}

var patternReps = map[Pattern][2]schema.Repetition{
	AllRequired:         {schema.Required, schema.Required},
	AllOptional:         {schema.Optional, schema.Optional},
	AllRepeated:         {schema.Repeated, schema.Repeated},
	MixRequiredOptional: {schema.Required, schema.Optional},
	MixRepeatedRequired: {schema.Repeated, schema.Required},
	MixOptionalRepeated: {schema.Optional, schema.Repeated},
}

// Repetition returns the repetition of the column at position. Mixed
// patterns alternate, starting with the first named repetition.
func (p Pattern) Repetition(position int) schema.Repetition {
	return patternReps[p][position%2]
}

// ParsePattern resolves a pattern name, ignoring case.
func ParsePattern(name string) (Pattern, error) {
	p := Pattern(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := patternReps[p]; !ok {
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown pattern %q", name)
	}
	return p, nil
}

// Options describes one generated case. All sample tables are carried here
// so that callers can substitute their own.
type Options struct {
	Pattern   Pattern
	Columns   int
	FirstType schema.Kind
	// Rotate cycles column types through schema.Kinds starting at
	// FirstType; otherwise every column has FirstType.
	Rotate bool

	Records   int
	Seed      int64
	NullRate  float64
	MaxRepeat int
	Samples   map[schema.Kind][]string

	// CSVCompression compresses the emitted CSV file.
	CSVCompression compression.Algorithm
	// Sink configures the emitted parquet file.
	Sink parquetsink.Options
}

// DefaultOptions returns a three column required boolean case.
func DefaultOptions() Options {
	return Options{
		Pattern:   AllRequired,
		Columns:   3,
		FirstType: schema.Bool,
		Records:   100,
		Seed:      1,
		NullRate:  0.2,
		MaxRepeat: 4,
		Samples:   DefaultSamples(),
		Sink:      parquetsink.DefaultOptions(),
	}
}

// DefaultSamples returns value pools including the range limits of each
// kind. Every value is in the form the parquet reader prints it back.
func DefaultSamples() map[schema.Kind][]string {
	return map[schema.Kind][]string{
		schema.Bool:   {"true", "false"},
		schema.Int32:  {"0", "1", "-1", "42", "2147483647", "-2147483648"},
		schema.Int64:  {"0", "1234567890123", "9223372036854775807", "-9223372036854775808"},
		schema.Float:  {"0", "0.5", "-2.75", "100", "1e-10", "3.4028235e+38"},
		schema.Double: {"0", "-5.00000000011", "3.141592653589793", "-1e-300", "1.7976931348623157e+308"},
		schema.Binary: {"alpha", "beta", "x y z", "a,b", "καλημέρα", "\"quoted\""},
	}
}

// Case is a generated schema with its records.
type Case struct {
	Name    string
	Schema  *schema.Schema
	Records [][]string
	Options Options
}

// Name returns the file name stem for opts.
func Name(opts Options) string {
	name := fmt.Sprintf("%s_%dcols_%s", opts.Pattern, opts.Columns, opts.FirstType)
	if opts.Rotate {
		name += "_rot"
	}
	return name
}

func (o Options) validate() error {
	if _, ok := patternReps[o.Pattern]; !ok {
		return errors.Newf(errors.ErrorTypeConfig, "unknown pattern %q", o.Pattern)
	}
	if o.Columns < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "column count must be positive, got %d", o.Columns)
	}
	if !o.FirstType.Valid() {
		return errors.Newf(errors.ErrorTypeConfig, "invalid column type %v", o.FirstType)
	}
	if o.Records < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "record count must not be negative, got %d", o.Records)
	}
	if o.NullRate < 0 || o.NullRate > 1 {
		return errors.Newf(errors.ErrorTypeConfig, "null rate must be within [0,1], got %g", o.NullRate)
	}
	if o.MaxRepeat < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "max repeat must be positive, got %d", o.MaxRepeat)
	}
	return nil
}

func (o Options) kindAt(position int) schema.Kind {
	if !o.Rotate {
		return o.FirstType
	}
	return schema.Kinds[(int(o.FirstType)+position)%len(schema.Kinds)]
}

// Generate builds the schema and records described by opts.
func Generate(opts Options) (*Case, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Samples == nil {
		opts.Samples = DefaultSamples()
	}

	fields := make([]schema.Field, opts.Columns)
	for i := range fields {
		kind := opts.kindAt(i)
		pool := opts.Samples[kind]
		if len(pool) == 0 {
			return nil, errors.Newf(errors.ErrorTypeConfig, "no sample values for %s", kind)
		}
		for _, v := range pool {
			if v == "" || strings.Contains(v, shred.Delimiter) {
				return nil, errors.Newf(errors.ErrorTypeConfig, "sample %q for %s is empty or contains %q", v, kind, shred.Delimiter)
			}
		}
		fields[i] = schema.Field{
			Repetition: opts.Pattern.Repetition(i).String(),
			Type:       kind.String(),
			Name:       fmt.Sprintf("var_%d", i),
		}
	}

	sch, err := schema.New(schema.DefaultMessageName, fields)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // deterministic test data
	records := make([][]string, opts.Records)
	for r := range records {
		rec := make([]string, opts.Columns)
		for i, col := range sch.Columns() {
			rec[i] = sample(rng, opts, col)
		}
		records[r] = rec
	}

	return &Case{
		Name:    Name(opts),
		Schema:  sch,
		Records: records,
		Options: opts,
	}, nil
}

func sample(rng *rand.Rand, opts Options, col schema.ColumnDescriptor) string {
	pool := opts.Samples[col.Kind]
	switch col.Repetition {
	case schema.Optional:
		if rng.Float64() < opts.NullRate {
			return ""
		}
	case schema.Repeated:
		n := rng.Intn(opts.MaxRepeat + 1)
		items := make([]string, n)
		for i := range items {
			items[i] = pool[rng.Intn(len(pool))]
		}
		return strings.Join(items, shred.Delimiter)
	}
	return pool[rng.Intn(len(pool))]
}

// Expand returns one Options per pattern, type and column count, with and
// without rotation when rotate is set, all derived from base.
func Expand(base Options, columnCounts []int, rotate bool) []Options {
	var out []Options
	for _, p := range Patterns {
		for _, k := range schema.Kinds {
			for _, n := range columnCounts {
				o := base
				o.Pattern, o.FirstType, o.Columns, o.Rotate = p, k, n, false
				out = append(out, o)
				if rotate && n > 1 {
					o.Rotate = true
					out = append(out, o)
				}
			}
		}
	}
	return out
}
