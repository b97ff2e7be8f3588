package sbp

import (
	"fmt"

	"github.com/mus-format/mus-go/raw"
	"github.com/poiesic/cognate/core"
)

// writer appends fixed-layout fields to a pre-sized buffer.
type writer struct {
	bs []byte
	n  int
}

func (w *writer) byte(v byte)       { w.n += raw.Byte.Marshal(v, w.bs[w.n:]) }
func (w *writer) uint32(v uint32)   { w.n += raw.Uint32.Marshal(v, w.bs[w.n:]) }
func (w *writer) uint64(v uint64)   { w.n += raw.Uint64.Marshal(v, w.bs[w.n:]) }
func (w *writer) int64(v int64)     { w.n += raw.Int64.Marshal(v, w.bs[w.n:]) }
func (w *writer) float32(v float32) { w.n += raw.Float32.Marshal(v, w.bs[w.n:]) }
func (w *writer) id(v core.ID)      { w.n += copy(w.bs[w.n:], v[:]) }

func (w *writer) string(s string) {
	w.uint32(uint32(len(s)))
	w.n += copy(w.bs[w.n:], s)
}

func (w *writer) vector(v []float32) {
	w.uint32(uint32(len(v)))
	for _, f := range v {
		w.float32(f)
	}
}

// reader consumes fixed-layout fields with a sticky error: after the
// first failure every read returns the zero value and the error is
// reported once at the end.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: reading %s at offset %d", ErrTruncated, what, r.n)
	}
}

func (r *reader) byte(what string) byte {
	if r.err != nil {
		return 0
	}
	v, used, err := raw.Byte.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(what)
		return 0
	}
	r.n += used
	return v
}

func (r *reader) uint32(what string) uint32 {
	if r.err != nil {
		return 0
	}
	v, used, err := raw.Uint32.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(what)
		return 0
	}
	r.n += used
	return v
}

func (r *reader) uint64(what string) uint64 {
	if r.err != nil {
		return 0
	}
	v, used, err := raw.Uint64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(what)
		return 0
	}
	r.n += used
	return v
}

func (r *reader) int64(what string) int64 {
	if r.err != nil {
		return 0
	}
	v, used, err := raw.Int64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(what)
		return 0
	}
	r.n += used
	return v
}

func (r *reader) float32(what string) float32 {
	if r.err != nil {
		return 0
	}
	v, used, err := raw.Float32.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(what)
		return 0
	}
	r.n += used
	return v
}

func (r *reader) id(what string) core.ID {
	var id core.ID
	if r.err != nil {
		return id
	}
	if len(r.bs)-r.n < len(id) {
		r.fail(what)
		return id
	}
	copy(id[:], r.bs[r.n:])
	r.n += len(id)
	return id
}

func (r *reader) string(what string) string {
	length := r.uint32(what)
	if r.err != nil {
		return ""
	}
	if uint32(len(r.bs)-r.n) < length {
		r.fail(what)
		return ""
	}
	s := string(r.bs[r.n : r.n+int(length)])
	r.n += int(length)
	return s
}

// count reads a u32 element count and checks that the remaining payload
// can hold that many elements of at least elemSize bytes each, so a
// corrupt count can never drive a huge allocation.
func (r *reader) count(what string, elemSize int) uint32 {
	v := r.uint32(what)
	if r.err != nil {
		return 0
	}
	if uint64(len(r.bs)-r.n) < uint64(v)*uint64(elemSize) {
		r.fail(what)
		return 0
	}
	return v
}

func (r *reader) vector(what string) []float32 {
	count := r.count(what, 4)
	if r.err != nil {
		return nil
	}
	v := make([]float32, count)
	for i := range v {
		v[i] = r.float32(what)
	}
	return v
}

// finish reports the sticky error, or rejects unconsumed payload bytes.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.n != len(r.bs) {
		return fmt.Errorf("%w: %d bytes left", ErrTrailingBytes, len(r.bs)-r.n)
	}
	return nil
}

// size helpers for pre-computing payload lengths

func sizeString(s string) int    { return 4 + len(s) }
func sizeVector(v []float32) int { return 4 + 4*len(v) }
