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

package rtpsmsg

import (
	"github.com/projectrtps/rtps/internal/cdr"
	"github.com/projectrtps/rtps/internal/rtpstypes"
)

// WriteSequenceNumber writes the wire form of a SequenceNumber: a signed
// 32-bit high word followed by an unsigned 32-bit low word.
func WriteSequenceNumber(w *cdr.Writer, sn rtpstypes.SequenceNumber) {
	v := int64(sn)
	w.WriteInt32(int32(v >> 32))
	w.WriteUint32(uint32(v))
}

// ReadSequenceNumber reads a SequenceNumber.
func ReadSequenceNumber(r *cdr.Reader) (rtpstypes.SequenceNumber, error) {
	hi, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return rtpstypes.SequenceNumber(int64(hi)<<32 | int64(lo)), nil
}

// MaxBitmapBits is the largest bitmap size a SequenceNumberSet/
// FragmentNumberSet may carry (spec.md §4.4: "bitmap of missing up to 256
// bits").
const MaxBitmapBits = 256

// NumberSet is a base value plus a sorted, deduplicated list of additional
// values it covers — the decoded form of a SequenceNumberSet or
// FragmentNumberSet bitmap. Values are relative offsets from Base (0 means
// Base itself is included).
type NumberSet struct {
	Base   int64
	Bits   []uint32 // offsets from Base that are set, ascending
	Length uint32   // number of bits the bitmap logically covers
}

// Contains reports whether offset o (0-based from Base) is set.
func (s NumberSet) Contains(o uint32) bool {
	for _, b := range s.Bits {
		if b == o {
			return true
		}
	}
	return false
}

// WriteNumberSet serializes a NumberSet in the SequenceNumberSet/
// FragmentNumberSet wire form: base, numBits, then ceil(numBits/32) words
// of bitmap, MSB-first within each word.
func WriteNumberSet(w *cdr.Writer, s NumberSet) {
	w.WriteInt32(int32(s.Base >> 32))
	w.WriteUint32(uint32(s.Base))
	numBits := s.Length
	if numBits > MaxBitmapBits {
		numBits = MaxBitmapBits
	}
	w.WriteUint32(numBits)
	nwords := (int(numBits) + 31) / 32
	words := make([]uint32, nwords)
	for _, b := range s.Bits {
		if b >= numBits {
			continue
		}
		word := b / 32
		bit := 31 - (b % 32)
		words[word] |= 1 << bit
	}
	for _, word := range words {
		w.WriteUint32(word)
	}
}

// ReadNumberSet deserializes a SequenceNumberSet/FragmentNumberSet.
func ReadNumberSet(r *cdr.Reader) (NumberSet, error) {
	hi, err := r.ReadInt32()
	if err != nil {
		return NumberSet{}, err
	}
	lo, err := r.ReadUint32()
	if err != nil {
		return NumberSet{}, err
	}
	numBits, err := r.ReadUint32()
	if err != nil {
		return NumberSet{}, err
	}
	if numBits > MaxBitmapBits {
		numBits = MaxBitmapBits
	}
	nwords := (int(numBits) + 31) / 32
	var bits []uint32
	for i := 0; i < nwords; i++ {
		word, err := r.ReadUint32()
		if err != nil {
			return NumberSet{}, err
		}
		for bit := 0; bit < 32; bit++ {
			offset := uint32(i*32 + bit)
			if offset >= numBits {
				break
			}
			if word&(1<<(31-bit)) != 0 {
				bits = append(bits, offset)
			}
		}
	}
	return NumberSet{Base: int64(hi)<<32 | int64(lo), Bits: bits, Length: numBits}, nil
}

// WriteLocator serializes a Locator element (not a parameter: no
// length/padding framing, used inline in INFO_REPLY and similar bodies).
func WriteLocator(w *cdr.Writer, l rtpstypes.Locator) {
	w.WriteInt32(int32(l.Kind))
	w.WriteUint32(l.Port)
	w.Raw(l.Address[:])
}

// ReadLocator deserializes a Locator element.
func ReadLocator(r *cdr.Reader) (rtpstypes.Locator, error) {
	kind, err := r.ReadInt32()
	if err != nil {
		return rtpstypes.Locator{}, err
	}
	port, err := r.ReadUint32()
	if err != nil {
		return rtpstypes.Locator{}, err
	}
	addr, err := r.Raw(16)
	if err != nil {
		return rtpstypes.Locator{}, err
	}
	var l rtpstypes.Locator
	l.Kind = rtpstypes.LocatorKind(kind)
	l.Port = port
	copy(l.Address[:], addr)
	return l, nil
}
