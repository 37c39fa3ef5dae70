package shred

// ValueSink receives typed values for the field currently open on a
// ColumnSink.
type ValueSink interface {
	AddBool(v bool) error
	AddInt32(v int32) error
	AddInt64(v int64) error
	AddFloat(v float32) error
	AddDouble(v float64) error
	AddBinary(v []byte) error
}

// ColumnSink is the column-oriented record write protocol driven by a
// Shredder. Calls must follow this state machine:
//
//	INIT       --StartMessage-->  IN_MESSAGE
//	IN_MESSAGE --StartField-->    IN_FIELD
//	IN_FIELD   --Add*-->          IN_FIELD
//	IN_FIELD   --EndField-->      IN_MESSAGE
//	IN_MESSAGE --EndMessage-->    INIT
//
// A required or optional field receives exactly one value between
// StartField and EndField; a repeated field receives zero or more, in order.
// Implementations own their buffering state and are not expected to be
// safe for concurrent use.
type ColumnSink interface {
	StartMessage() error
	EndMessage() error
	StartField(name string, position int) error
	EndField(name string, position int) error
	ValueSink
}
