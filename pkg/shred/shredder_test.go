package shred_test

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
	"github.com/ajitpratap0/csvparquet/pkg/shred/shredtest"
)

func mustParse(t *testing.T, text string) *schema.Schema {
	t.Helper()
	sch, err := schema.Parse(text)
	require.NoError(t, err)
	return sch
}

func TestShredder_SkipsNullOptionalField(t *testing.T) {
	sch := mustParse(t, "message m { required boolean a; optional int32 b; }")
	rec := shredtest.NewRecorder()

	require.NoError(t, shred.New(sch, rec).Write([]string{"true", ""}))

	expected := []shredtest.Call{
		{Op: shredtest.StartMessage},
		{Op: shredtest.StartField, Name: "a", Position: 0},
		{Op: shredtest.AddBool, Value: true},
		{Op: shredtest.EndField, Name: "a", Position: 0},
		{Op: shredtest.EndMessage},
	}
	if diff := cmp.Diff(expected, rec.Calls); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}
	assert.Equal(t, "startMessage, startField(a,0), addBool(true), endField(a,0), endMessage", rec.Trace())
}

func TestShredder_RepeatedValuesInSplitOrder(t *testing.T) {
	sch := mustParse(t, "message m { repeated int32 c; }")
	rec := shredtest.NewRecorder()

	require.NoError(t, shred.New(sch, rec).Write([]string{"1|2|3"}))

	expected := []shredtest.Call{
		{Op: shredtest.StartMessage},
		{Op: shredtest.StartField, Name: "c", Position: 0},
		{Op: shredtest.AddInt32, Value: int32(1)},
		{Op: shredtest.AddInt32, Value: int32(2)},
		{Op: shredtest.AddInt32, Value: int32(3)},
		{Op: shredtest.EndField, Name: "c", Position: 0},
		{Op: shredtest.EndMessage},
	}
	if diff := cmp.Diff(expected, rec.Calls); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}
}

func TestShredder_RepeatedBinaryKeepsOrder(t *testing.T) {
	sch := mustParse(t, "message m { repeated binary tags; }")
	rec := shredtest.NewRecorder()

	require.NoError(t, shred.New(sch, rec).Write([]string{"a|b|c"}))

	assert.Equal(t,
		`startMessage, startField(tags,0), addBinary("a"), addBinary("b"), addBinary("c"), endField(tags,0), endMessage`,
		rec.Trace())
}

func TestShredder_DoubleIsExact(t *testing.T) {
	sch := mustParse(t, "message m { required double d; }")
	rec := shredtest.NewRecorder()

	require.NoError(t, shred.New(sch, rec).Write([]string{"-5.00000000011"}))

	require.Len(t, rec.Calls, 5)
	assert.Equal(t, shredtest.AddDouble, rec.Calls[2].Op)
	assert.Equal(t, math.Float64bits(-5.00000000011), rec.Float64Bits(2))
}

func TestShredder_ValueParseError(t *testing.T) {
	sch := mustParse(t, "message m { required int32 x; }")
	rec := shredtest.NewRecorder()

	err := shred.New(sch, rec).Write([]string{"abc"})
	require.Error(t, err)

	var parseErr *shred.ValueParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 0, parseErr.Position)
	assert.Equal(t, "abc", parseErr.Raw)
	assert.Equal(t, schema.Int32, parseErr.Kind)
	assert.Equal(t, errors.ErrorTypeData, errors.TypeOf(err))

	// The record was started and left open; nothing is rolled back.
	assert.Equal(t, "startMessage, startField(x,0)", rec.Trace())
}

func TestShredder_ParseErrorReportsColumnPosition(t *testing.T) {
	sch := mustParse(t, "message m { required boolean a; optional int64 b; repeated float c; }")
	rec := shredtest.NewRecorder()

	err := shred.New(sch, rec).Write([]string{"false", "9", "1.5|oops"})

	var parseErr *shred.ValueParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Position)
	assert.Equal(t, "oops", parseErr.Raw)
	assert.Equal(t, schema.Float, parseErr.Kind)
}

func TestShredder_ArityMismatch(t *testing.T) {
	sch := mustParse(t, "message m { required int32 a; optional int32 b; }")

	for _, record := range [][]string{
		{"1", "2", "3"},
		{"1"},
		{},
		nil,
	} {
		rec := shredtest.NewRecorder()
		err := shred.New(sch, rec).Write(record)

		var arityErr *shred.ArityMismatchError
		require.ErrorAs(t, err, &arityErr)
		assert.Equal(t, 2, arityErr.Expected)
		assert.Equal(t, len(record), arityErr.Actual)
		assert.Empty(t, rec.Calls, "no sink call may precede an arity failure")
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	}
}

func TestShredder_EmptyValueNeverDecoded(t *testing.T) {
	// "" would fail every numeric and boolean decode, so a clean write
	// proves the sentinel never reached the coder.
	sch := mustParse(t, `message m {
  required boolean a;
  optional int32 b;
  optional int64 c;
  optional float d;
  optional double e;
  repeated binary f;
}`)
	rec := shredtest.NewRecorder()

	require.NoError(t, shred.New(sch, rec).Write([]string{"", "", "", "", "", ""}))
	assert.Equal(t, "startMessage, endMessage", rec.Trace())
}

func TestShredder_FieldBoundariesMatch(t *testing.T) {
	sch := mustParse(t, `message m {
  required int64 id;
  optional binary name;
  repeated double scores;
  optional boolean ok;
}`)
	records := [][]string{
		{"1", "alice", "1.5|2.5", "true"},
		{"2", "", "", ""},
		{"3", "bob", "7", "false"},
	}

	for _, record := range records {
		rec := shredtest.NewRecorder()
		s := shred.New(sch, rec)
		require.NoError(t, s.Write(record))
		assert.Same(t, sch, s.Schema())

		var messages, starts, ends int
		for _, c := range rec.Calls {
			switch c.Op {
			case shredtest.StartMessage:
				messages++
			case shredtest.StartField:
				starts++
			case shredtest.EndField:
				ends++
			}
		}

		nonNull := 0
		for _, v := range record {
			if v != "" {
				nonNull++
			}
		}
		assert.Equal(t, 1, messages)
		assert.Equal(t, nonNull, starts)
		assert.Equal(t, nonNull, ends)
		assert.Equal(t, shredtest.EndMessage, rec.Calls[len(rec.Calls)-1].Op)
	}
}

func TestShredder_SinkErrorPropagatesUnchanged(t *testing.T) {
	sch := mustParse(t, "message m { required int32 a; required int32 b; }")
	sinkErr := stderrors.New("disk full")

	// Fail each call position in turn: startMessage, startField(a),
	// addInt32, endField(a), startField(b), addInt32, endField(b), endMessage.
	for failAt := 1; failAt <= 8; failAt++ {
		rec := &shredtest.Recorder{FailAt: failAt, Err: sinkErr}
		err := shred.New(sch, rec).Write([]string{"1", "2"})
		require.ErrorIs(t, err, sinkErr)
		assert.Same(t, sinkErr, err)
		assert.Len(t, rec.Calls, failAt-1)
	}
}

func TestShredder_IsReusableAcrossRecords(t *testing.T) {
	sch := mustParse(t, "message m { optional int32 a; }")
	rec := shredtest.NewRecorder()
	s := shred.New(sch, rec)

	require.NoError(t, s.Write([]string{"1"}))
	require.Error(t, s.Write([]string{"1", "2"}))
	require.NoError(t, s.Write([]string{""}))

	assert.Equal(t, "startMessage, startField(a,0), addInt32(1), endField(a,0), endMessage, startMessage, endMessage", rec.Trace())
}
