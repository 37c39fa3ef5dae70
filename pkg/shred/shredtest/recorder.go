// Package shredtest provides an in-memory ColumnSink that records every
// call it receives, for tests and for tracing record conversions.
package shredtest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

var _ shred.ColumnSink = (*Recorder)(nil)

// Op names a ColumnSink method.
type Op string

const (
	StartMessage Op = "startMessage"
	EndMessage   Op = "endMessage"
	StartField   Op = "startField"
	EndField     Op = "endField"
	AddBool      Op = "addBool"
	AddInt32     Op = "addInt32"
	AddInt64     Op = "addInt64"
	AddFloat     Op = "addFloat"
	AddDouble    Op = "addDouble"
	AddBinary    Op = "addBinary"
)

// Call is one recorded sink call. Name and Position are set for field
// boundaries; Value is set for value calls and holds the Go value passed
// (bool, int32, int64, float32, float64 or string for binary).
type Call struct {
	Op       Op
	Name     string
	Position int
	Value    interface{}
}

// String renders the call as op(args), e.g. startField(a,0) or addInt32(7).
func (c Call) String() string {
	switch c.Op {
	case StartField, EndField:
		return fmt.Sprintf("%s(%s,%d)", c.Op, c.Name, c.Position)
	case StartMessage, EndMessage:
		return string(c.Op)
	case AddFloat:
		return fmt.Sprintf("%s(%s)", c.Op, strconv.FormatFloat(float64(c.Value.(float32)), 'g', -1, 32))
	case AddDouble:
		return fmt.Sprintf("%s(%s)", c.Op, strconv.FormatFloat(c.Value.(float64), 'g', -1, 64))
	case AddBinary:
		return fmt.Sprintf("%s(%q)", c.Op, c.Value)
	}
	return fmt.Sprintf("%s(%v)", c.Op, c.Value)
}

// Recorder implements shred.ColumnSink by appending to Calls. If FailAt is
// positive, the FailAt-th call (1-based) returns Err instead of being
// recorded.
type Recorder struct {
	Calls  []Call
	FailAt int
	Err    error

	n int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Reset drops recorded calls and the call counter.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
	r.n = 0
}

// Strings returns the recorded calls rendered with Call.String.
func (r *Recorder) Strings() []string {
	out := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.String()
	}
	return out
}

// Trace joins Strings with ", ".
func (r *Recorder) Trace() string {
	return strings.Join(r.Strings(), ", ")
}

// Float64Bits returns the bit pattern of the i-th recorded AddDouble value.
func (r *Recorder) Float64Bits(i int) uint64 {
	return math.Float64bits(r.Calls[i].Value.(float64))
}

func (r *Recorder) record(c Call) error {
	r.n++
	if r.FailAt > 0 && r.n == r.FailAt {
		return r.Err
	}
	r.Calls = append(r.Calls, c)
	return nil
}

func (r *Recorder) StartMessage() error { return r.record(Call{Op: StartMessage}) }
func (r *Recorder) EndMessage() error   { return r.record(Call{Op: EndMessage}) }

func (r *Recorder) StartField(name string, position int) error {
	return r.record(Call{Op: StartField, Name: name, Position: position})
}

func (r *Recorder) EndField(name string, position int) error {
	return r.record(Call{Op: EndField, Name: name, Position: position})
}

func (r *Recorder) AddBool(v bool) error      { return r.record(Call{Op: AddBool, Value: v}) }
func (r *Recorder) AddInt32(v int32) error    { return r.record(Call{Op: AddInt32, Value: v}) }
func (r *Recorder) AddInt64(v int64) error    { return r.record(Call{Op: AddInt64, Value: v}) }
func (r *Recorder) AddFloat(v float32) error  { return r.record(Call{Op: AddFloat, Value: v}) }
func (r *Recorder) AddDouble(v float64) error { return r.record(Call{Op: AddDouble, Value: v}) }
func (r *Recorder) AddBinary(v []byte) error  { return r.record(Call{Op: AddBinary, Value: string(v)}) }
