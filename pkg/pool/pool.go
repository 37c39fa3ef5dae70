// Package pool provides typed object pooling for csvparquet.
//
// It wraps sync.Pool with a reset hook and usage statistics. Buffers is the
// shared pool of encoding buffers used when rendering rows:
//
//	buf := pool.GetBuffer()
//	defer pool.PutBuffer(buf)
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a type-safe object pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. reset, when not nil, is applied to objects returned
// with Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, allocating one if it is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects allocated, currently checked out, and
// handed out in total.
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets)
}

// MaxBufferSize is the largest buffer capacity kept for reuse. Larger
// buffers are left to the garbage collector.
const MaxBufferSize = 1 << 20

// Buffers pools encoding buffers.
var Buffers = New(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
	func(b *bytes.Buffer) { b.Reset() },
)

// GetBuffer returns an empty buffer from Buffers.
func GetBuffer() *bytes.Buffer {
	return Buffers.Get()
}

// PutBuffer returns b to Buffers unless it grew beyond MaxBufferSize.
func PutBuffer(b *bytes.Buffer) {
	if b == nil {
		return
	}
	if b.Cap() > MaxBufferSize {
		atomic.AddInt64(&Buffers.stats.inUse, -1)
		return
	}
	Buffers.Put(b)
}
