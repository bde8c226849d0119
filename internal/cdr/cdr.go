// Copyright RTPS Go Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cdr implements the Common Data Representation binary encoding
// (XCDR1 and XCDR2, both endiannesses) used for RTPS DATA/DATA_FRAG
// payloads, per spec.md §4.1. Alignment is tracked relative to the start of
// the enclosing CDR stream, not the enclosing buffer, so a Writer/Reader
// must be constructed once per submessage body.
package cdr

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Version selects the alignment rules in force: XCDR1 aligns up to 8 bytes,
// XCDR2 caps alignment at 4 bytes (spec.md §4.1).
type Version int

const (
	XCDR1 Version = 1
	XCDR2 Version = 2
)

func (v Version) maxAlign() int {
	if v == XCDR2 {
		return 4
	}
	return 8
}

// Endian selects the byte order of a CDR stream; it is carried per
// submessage, never assumed globally.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Writer serializes primitive CDR values into buf, tracking the current
// offset so alignment padding is computed relative to the start of this
// stream.
type Writer struct {
	version Version
	endian  Endian
	buf     []byte
}

// NewWriter returns a Writer appending to an empty internal buffer.
func NewWriter(version Version, endian Endian) *Writer {
	return &Writer{version: version, endian: endian}
}

// Bytes returns the serialized stream so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Offset returns the current stream position.
func (w *Writer) Offset() int { return len(w.buf) }

func (w *Writer) align(size int) {
	a := size
	if a > w.version.maxAlign() {
		a = w.version.maxAlign()
	}
	if a <= 1 {
		return
	}
	pad := (a - (len(w.buf) % a)) % a
	for i := 0; i < pad; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Raw appends unaligned raw bytes, e.g. array element payloads composed
// elsewhere.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteUint8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) WriteInt8(v int8)     { w.WriteUint8(uint8(v)) }
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteUint16(v uint16) {
	w.align(2)
	b := make([]byte, 2)
	w.endian.order().PutUint16(b, v)
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) {
	w.align(4)
	b := make([]byte, 4)
	w.endian.order().PutUint32(b, v)
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) {
	w.align(8)
	b := make([]byte, 8)
	w.endian.order().PutUint64(b, v)
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteString writes a 4-byte-length-prefixed, NUL-terminated string; the
// length counts the trailing NUL (spec.md §4.1).
func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s) + 1))
	w.Raw([]byte(s))
	w.Raw([]byte{0})
}

// WriteSequenceLength writes a u32 sequence element count.
func (w *Writer) WriteSequenceLength(n int) { w.WriteUint32(uint32(n)) }

// Reader deserializes a CDR stream previously produced by a Writer (or
// received off the wire) with the same alignment tracking.
type Reader struct {
	version Version
	endian  Endian
	buf     []byte
	off     int
}

// NewReader wraps buf for reading with the given version/endianness.
func NewReader(version Version, endian Endian, buf []byte) *Reader {
	return &Reader{version: version, endian: endian, buf: buf}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) align(size int) error {
	a := size
	if a > r.version.maxAlign() {
		a = r.version.maxAlign()
	}
	if a <= 1 {
		return nil
	}
	pad := (a - (r.off % a)) % a
	return r.skip(pad)
}

func (r *Reader) skip(n int) error {
	if r.off+n > len(r.buf) {
		return errors.Errorf("cdr: short buffer: need %d more bytes, have %d", n, r.Remaining())
	}
	r.off += n
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, errors.Errorf("cdr: short buffer: need %d bytes, have %d", n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Raw reads n unaligned raw bytes.
func (r *Reader) Raw(n int) ([]byte, error) { return r.take(n) }

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.align(2); err != nil {
		return 0, err
	}
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.endian.order().Uint16(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.align(4); err != nil {
		return 0, err
	}
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.endian.order().Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.align(8); err != nil {
		return 0, err
	}
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.endian.order().Uint64(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads a 4-byte-length-prefixed, NUL-terminated string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", errors.New("cdr: string length must include the NUL terminator")
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b[:n-1]), nil
}

// ReadSequenceLength reads a u32 sequence element count.
func (r *Reader) ReadSequenceLength() (int, error) {
	n, err := r.ReadUint32()
	return int(n), err
}
