package shred

import (
	stderrors "errors"
	"strconv"

	"github.com/ajitpratap0/csvparquet/pkg/schema"
)

var errInvalidBool = stderrors.New(`want "true" or "false"`)

// Value is one decoded scalar. The set of implementations is closed: each
// kind has exactly one Value type and its Emit calls the matching sink
// method.
type Value interface {
	Kind() schema.Kind
	Emit(s ValueSink) error
	isValue()
}

type (
	// BoolValue is a decoded boolean
	BoolValue bool
	// Int32Value is a decoded 32-bit integer
	Int32Value int32
	// Int64Value is a decoded 64-bit integer
	Int64Value int64
	// FloatValue is a decoded single-precision float
	FloatValue float32
	// DoubleValue is a decoded double-precision float
	DoubleValue float64
	// BinaryValue is an undecoded byte sequence
	BinaryValue []byte
)

func (BoolValue) Kind() schema.Kind   { return schema.Bool }
func (Int32Value) Kind() schema.Kind  { return schema.Int32 }
func (Int64Value) Kind() schema.Kind  { return schema.Int64 }
func (FloatValue) Kind() schema.Kind  { return schema.Float }
func (DoubleValue) Kind() schema.Kind { return schema.Double }
func (BinaryValue) Kind() schema.Kind { return schema.Binary }

func (v BoolValue) Emit(s ValueSink) error   { return s.AddBool(bool(v)) }
func (v Int32Value) Emit(s ValueSink) error  { return s.AddInt32(int32(v)) }
func (v Int64Value) Emit(s ValueSink) error  { return s.AddInt64(int64(v)) }
func (v FloatValue) Emit(s ValueSink) error  { return s.AddFloat(float32(v)) }
func (v DoubleValue) Emit(s ValueSink) error { return s.AddDouble(float64(v)) }
func (v BinaryValue) Emit(s ValueSink) error { return s.AddBinary([]byte(v)) }

func (BoolValue) isValue()   {}
func (Int32Value) isValue()  {}
func (Int64Value) isValue()  {}
func (FloatValue) isValue()  {}
func (DoubleValue) isValue() {}
func (BinaryValue) isValue() {}

// Decode parses raw as a value of the given kind. On failure it returns a
// *ValueParseError whose Position is -1; the Shredder fills in the column.
//
// Booleans must be exactly "true" or "false". Integers are base 10 and must
// fit the kind's signed range. Float and double literals that overflow
// round to infinity rather than failing. Binary values are the raw bytes
// of the text.
func Decode(raw string, kind schema.Kind) (Value, error) {
	return decodeAt(-1, raw, kind)
}

func decodeAt(position int, raw string, kind schema.Kind) (Value, error) {
	fail := func(err error) (Value, error) {
		return nil, &ValueParseError{Position: position, Raw: raw, Kind: kind, Err: err}
	}

	switch kind {
	case schema.Bool:
		switch raw {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return fail(errInvalidBool)
	case schema.Int32:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return fail(numErr(err))
		}
		return Int32Value(v), nil
	case schema.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail(numErr(err))
		}
		return Int64Value(v), nil
	case schema.Float:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil && !isRange(err) {
			return fail(numErr(err))
		}
		return FloatValue(v), nil
	case schema.Double:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil && !isRange(err) {
			return fail(numErr(err))
		}
		return DoubleValue(v), nil
	case schema.Binary:
		return BinaryValue(raw), nil
	}
	return fail(stderrors.New("unsupported column kind"))
}

// numErr strips the strconv function name and input, which ValueParseError
// already reports.
func numErr(err error) error {
	var ne *strconv.NumError
	if stderrors.As(err, &ne) {
		return ne.Err
	}
	return err
}

func isRange(err error) bool {
	return stderrors.Is(err, strconv.ErrRange)
}
