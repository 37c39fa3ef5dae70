// Package csvparquet converts flat delimited text records into parquet files.
//
// Each input record is a slice of field strings whose positions match the
// columns of a flat parquet message schema:
//
//	message m {
//	  required int32 id;
//	  optional binary name;
//	  repeated double scores;
//	}
//
// An empty field is a null for optional columns and an empty list for
// repeated ones; repeated values are separated by "|". Every record is typed
// against the schema and shredded into column values with definition and
// repetition levels.
//
// # Packages
//
//   - pkg/schema: the column model and schema text parser
//   - pkg/shred: the record shredder, value coder and ColumnSink protocol
//   - pkg/parquetsink: a ColumnSink writing parquet files
//   - pkg/writer: the record writer tying shredding to a parquet stream
//   - pkg/input: delimited text readers with transparent decompression
//   - pkg/storage: local, S3 and GCS output targets
//   - pkg/inspect: reading parquet files back into rows
//   - pkg/matrix: generation of parquet test files
//
// # Quick Start
//
//	sch, err := schema.Parse(text)
//	if err != nil {
//		return err
//	}
//	w, err := writer.New(out, sch, writer.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	if err := w.Write([]string{"1", "ann", "1.5|2"}); err != nil {
//		return err
//	}
//	return w.Close()
//
// The csvparquet command under cmd/csvparquet wraps these packages.
package csvparquet
