package matrix

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/storage"
	"github.com/ajitpratap0/csvparquet/pkg/writer"
)

// Description is the JSON companion of a generated parquet file.
type Description struct {
	Name        string       `json:"name"`
	Schema      string       `json:"schema"`
	Pattern     Pattern      `json:"pattern"`
	FirstType   string       `json:"first_type"`
	Rotated     bool         `json:"rotated"`
	Seed        int64        `json:"seed"`
	Compression string       `json:"compression"`
	Columns     []ColumnInfo `json:"columns"`
	Records     [][]string   `json:"records"`
}

// ColumnInfo describes one column of a Description.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Repetition string `json:"repetition"`
}

// Describe returns the JSON companion of c.
func Describe(c *Case) Description {
	d := Description{
		Name:        c.Name,
		Schema:      c.Schema.String(),
		Pattern:     c.Options.Pattern,
		FirstType:   c.Options.FirstType.String(),
		Rotated:     c.Options.Rotate,
		Seed:        c.Options.Seed,
		Compression: c.Options.Sink.Compression,
		Records:     c.Records,
	}
	for _, f := range c.Schema.Fields() {
		d.Columns = append(d.Columns, ColumnInfo{Name: f.Name, Type: f.Type, Repetition: f.Repetition})
	}
	if d.Records == nil {
		d.Records = [][]string{}
	}
	return d
}

// Files names the locations written by Emit.
type Files struct {
	Parquet storage.Location
	JSON    storage.Location
	CSV     storage.Location
}

// Emit writes <name>.parquet, <name>.json and <name>.csv[.ext] under dir.
func Emit(ctx context.Context, c *Case, dir storage.Location, store storage.Options, log *zap.Logger) (Files, error) {
	if log == nil {
		log = zap.NewNop()
	}
	files := Files{
		Parquet: dir.Join(c.Name + ".parquet"),
		JSON:    dir.Join(c.Name + ".json"),
		CSV:     dir.Join(c.Name + ".csv" + c.Options.CSVCompression.Extension()),
	}

	if err := create(ctx, files.Parquet, store, "application/vnd.apache.parquet", func(w io.Writer) error {
		return writeParquet(w, c, log)
	}); err != nil {
		return files, err
	}
	if err := create(ctx, files.JSON, store, "application/json", func(w io.Writer) error {
		return writeJSON(w, c)
	}); err != nil {
		return files, err
	}
	if err := create(ctx, files.CSV, store, "text/csv", func(w io.Writer) error {
		return writeCSV(w, c)
	}); err != nil {
		return files, err
	}

	log.Info("generated test file",
		zap.String("name", c.Name),
		zap.Int("records", len(c.Records)),
		zap.Stringer("parquet", files.Parquet))
	return files, nil
}

func create(ctx context.Context, loc storage.Location, store storage.Options, contentType string, fn func(io.Writer) error) error {
	store.ContentType = contentType
	out, err := storage.CreateAt(ctx, loc, store)
	if err != nil {
		return err
	}
	if err := fn(out); err != nil {
		_ = out.Abort(err)
		return err
	}
	return out.Close()
}

func writeParquet(out io.Writer, c *Case, log *zap.Logger) error {
	w, err := writer.New(out, c.Schema,
		writer.WithSinkOptions(c.Options.Sink),
		writer.WithLogger(log.With(zap.String("case", c.Name))))
	if err != nil {
		return err
	}
	for _, rec := range c.Records {
		if err := w.Write(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func writeJSON(out io.Writer, c *Case) error {
	data, err := json.MarshalIndent(Describe(c), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode description")
	}
	data = append(data, '\n')
	if _, err := out.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write description")
	}
	return nil
}

func writeCSV(out io.Writer, c *Case) error {
	zw, err := compression.NewWriter(out, c.Options.CSVCompression, compression.Default)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = zw.Close()
		}
	}()
	cw := csv.NewWriter(zw)
	for _, rec := range c.Records {
		// a lone empty field would be a blank line, which readers skip
		if len(rec) == 1 && rec[0] == "" {
			cw.Flush()
			if _, err := io.WriteString(zw, "\"\"\n"); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv")
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv")
	}
	closed = true
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finish csv compression")
	}
	return nil
}
