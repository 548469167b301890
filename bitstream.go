// bitstream.go - binary state serialization primitives
//
// Mirrors the StreamWriter/StreamReader operator-overload idiom from the
// source this core was ported from: scalar fields are written with their
// natural width, fixed arrays element-by-element, and variable-length
// vectors/maps with a length prefix. Go has no operator overloading, so the
// same shape is expressed as a handful of generic helper functions plus
// small per-type Write/Read methods on the components that use them.

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// StreamWriter accumulates a state blob in the same field order the
// corresponding StreamReader expects to consume it.
type StreamWriter struct {
	buf bytes.Buffer
}

func NewStreamWriter() *StreamWriter {
	return &StreamWriter{}
}

func (w *StreamWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteU8 writes a single byte. Named to avoid colliding with
// bytes.Buffer's own WriteByte while keeping the same one-byte contract.
func (w *StreamWriter) WriteU8(b byte) {
	w.buf.WriteByte(b)
}

func (w *StreamWriter) WriteBool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *StreamWriter) WriteU16(v uint16) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *StreamWriter) WriteU32(v uint32) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *StreamWriter) WriteU64(v uint64) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *StreamWriter) WriteInt(v int) {
	w.WriteU32(uint32(int32(v)))
}

// WriteArray writes a fixed-size byte array with no length prefix; the
// reader must know the size ahead of time (the Blob<S> convention).
func (w *StreamWriter) WriteArray(b []byte) {
	w.buf.Write(b)
}

// WriteVector writes a length-prefixed variable-size byte slice.
func (w *StreamWriter) WriteVector(b []byte) {
	w.WriteU64(uint64(len(b)))
	w.buf.Write(b)
}

// WriteMap writes a count-prefixed sequence of key/value byte pairs, used
// for the upper ROM slot table.
func (w *StreamWriter) WriteMap(m map[byte][]byte) {
	w.WriteU32(uint32(len(m)))
	for k := byte(0); ; k++ {
		if v, ok := m[k]; ok {
			w.WriteU8(k)
			w.WriteVector(v)
		}
		if k == 255 {
			break
		}
	}
}

// StreamReader consumes a blob written by StreamWriter. Every Read method
// returns an error instead of panicking on a short buffer, matching the
// "malformed input is reported, not fatal" convention the rest of this
// module's parsers use.
type StreamReader struct {
	data []byte
	pos  int
}

func NewStreamReader(data []byte) *StreamReader {
	return &StreamReader{data: data}
}

func (r *StreamReader) need(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("bitstream: short read: need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
	}
	return nil
}

func (r *StreamReader) ReadU8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *StreamReader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	return b != 0, err
}

func (r *StreamReader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *StreamReader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *StreamReader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *StreamReader) ReadInt() (int, error) {
	v, err := r.ReadU32()
	return int(int32(v)), err
}

func (r *StreamReader) ReadArray(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *StreamReader) ReadVector() ([]byte, error) {
	n, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	return r.ReadArray(int(n))
}

func (r *StreamReader) ReadMap() (map[byte][]byte, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	m := make(map[byte][]byte, count)
	for i := uint32(0); i < count; i++ {
		k, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		v, err := r.ReadVector()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}
