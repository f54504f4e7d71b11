// Package receipt decodes the session receipts produced by the remote proving
// service.
//
// Receipts are bincode encoded: integers are little-endian and fixed width,
// and every sequence is prefixed by its length as a u64.
//
//	SessionReceipt { segments: Vec<SegmentReceipt>, journal: Vec<u8> }
//	SegmentReceipt { seal: Vec<u32>, index: u32 }
package receipt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Segment is the proof material of one segment of an execution.
type Segment struct {
	Seal  []uint32
	Index uint32
}

// Receipt is the result of a proving session.
type Receipt struct {
	Segments []Segment
	Journal  []byte
}

var errShortBuffer = errors.New("unexpected end of receipt")

// Decode parses a bincode encoded session receipt.
func Decode(buf []byte) (*Receipt, error) {
	d := decoder{buf: buf}

	segments, err := d.length(4 + 8)
	if err != nil {
		return nil, fmt.Errorf("reading segment count: %w", err)
	}
	r := &Receipt{Segments: make([]Segment, 0, segments)}
	for i := uint64(0); i < segments; i++ {
		words, err := d.length(4)
		if err != nil {
			return nil, fmt.Errorf("reading seal length of segment %d: %w", i, err)
		}
		seg := Segment{Seal: make([]uint32, words)}
		for j := range seg.Seal {
			seg.Seal[j], _ = d.uint32()
		}
		if seg.Index, err = d.uint32(); err != nil {
			return nil, fmt.Errorf("reading index of segment %d: %w", i, err)
		}
		r.Segments = append(r.Segments, seg)
	}

	journal, err := d.length(1)
	if err != nil {
		return nil, fmt.Errorf("reading journal length: %w", err)
	}
	r.Journal = d.bytes(int(journal))

	if rest := len(d.buf) - d.off; rest != 0 {
		return nil, fmt.Errorf("%d trailing bytes after receipt", rest)
	}
	return r, nil
}

// Encode produces the bincode encoding of the receipt.
func Encode(r *Receipt) []byte {
	size := 8 + 8 + len(r.Journal)
	for _, seg := range r.Segments {
		size += 8 + 4*len(seg.Seal) + 4
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(r.Segments)))
	for _, seg := range r.Segments {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(seg.Seal)))
		for _, w := range seg.Seal {
			buf = binary.LittleEndian.AppendUint32(buf, w)
		}
		buf = binary.LittleEndian.AppendUint32(buf, seg.Index)
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(r.Journal)))
	return append(buf, r.Journal...)
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) uint32() (uint32, error) {
	if len(d.buf)-d.off < 4 {
		return 0, errShortBuffer
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

// length reads a sequence length and checks that the remaining buffer can
// hold that many elements of at least minElem bytes each.
func (d *decoder) length(minElem int) (uint64, error) {
	if len(d.buf)-d.off < 8 {
		return 0, errShortBuffer
	}
	n := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	if n > uint64(len(d.buf)-d.off)/uint64(minElem) {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes: %w", n, len(d.buf)-d.off, errShortBuffer)
	}
	return n, nil
}

func (d *decoder) bytes(n int) []byte {
	out := make([]byte, n)
	copy(out, d.buf[d.off:d.off+n])
	d.off += n
	return out
}
