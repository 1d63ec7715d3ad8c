// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/lz"
)

var errEOS = errors.New("lzma: end-of-stream marker")

// ErrUnexpectedEOS reports an end-of-stream marker that doesn't terminate
// the stream correctly.
var ErrUnexpectedEOS = errors.New("lzma: unexpected end of stream")

// Decoder decodes the operations of an LZMA stream. It replays the
// probability updates of the encoder and keeps the dictionary required
// for the literal contexts.
//
// A stream without known size must contain an end-of-stream marker. If
// the input ends before the marker, io.ErrUnexpectedEOF is returned.
type Decoder struct {
	props DecoderProperties
	state state
	rd    rangeDecoder
	br    *bufio.Reader
	buf   lz.Buffer
	// uncompressed size; negative if unknown
	size int64
	// segment indicates an initialized range decoder
	segment bool
	err     error
}

// NewDecoder creates a decoder for the LZMA stream read from r. The size
// of the uncompressed data is unknown, so the stream must be terminated
// by an end-of-stream marker.
func NewDecoder(r io.Reader, p DecoderProperties) (*Decoder, error) {
	return NewDecoderSize(r, p, -1)
}

// NewDecoderSize creates a decoder for a stream with the given
// uncompressed size. A negative size is treated as unknown.
func NewDecoderSize(r io.Reader, p DecoderProperties, size int64,
) (*Decoder, error) {
	if r == nil {
		return nil, errors.New("lzma: reader must not be nil")
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	if size < 0 {
		size = -1
	}
	d := &Decoder{props: p, br: bufio.NewReader(r), size: size}
	err := d.buf.Init(int(p.DictSize), 2*int(p.DictSize))
	if err != nil {
		return nil, err
	}
	d.state.init(p.Properties)
	return d, nil
}

// Pos returns the number of uncompressed bytes decoded.
func (d *Decoder) Pos() int64 { return d.buf.Pos() }

// Align prepares the decoder for a new range-coded segment that starts at
// the current byte of the stream. It is the counterpart of Encoder.Align.
func (d *Decoder) Align() error {
	if d.err != nil {
		return d.err
	}
	d.segment = false
	return nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadOp decodes the next operation. At the end of the stream or after
// the end-of-stream marker io.EOF is returned.
func (d *Decoder) ReadOp() (op Op, err error) {
	if d.buf.Available() < maxMatchLen {
		// nobody reads the decoded bytes
		if _, err = d.buf.WriteTo(io.Discard); err != nil {
			return Op{}, err
		}
	}
	return d.readOp()
}

// readOp decodes the next operation and makes all errors sticky. The
// buffer must have space for a match of maximum length.
func (d *Decoder) readOp() (op Op, err error) {
	if d.err != nil {
		return Op{}, d.err
	}
	op, err = d.nextOp()
	if err != nil {
		d.err = err
		return Op{}, err
	}
	return op, nil
}

func (d *Decoder) nextOp() (op Op, err error) {
	if d.size >= 0 && d.buf.Pos() >= d.size {
		return Op{}, io.EOF
	}
	if !d.segment {
		if err = d.rd.init(d.br); err != nil {
			return Op{}, unexpectedEOF(err)
		}
		d.segment = true
	}
	op, err = d.decodeOp()
	switch err {
	case nil:
	case errEOS:
		if d.size >= 0 {
			return Op{}, fmt.Errorf(
				"lzma: end-of-stream marker at %d; want size %d: %w",
				d.buf.Pos(), d.size, ErrUnexpectedEOS)
		}
		if !d.rd.possiblyAtEnd() {
			return Op{}, ErrUnexpectedEOS
		}
		return Op{}, io.EOF
	default:
		return Op{}, unexpectedEOF(err)
	}
	if d.size >= 0 && d.buf.Pos() > d.size {
		return Op{}, errors.New("lzma: match exceeds uncompressed size")
	}
	return op, nil
}

func (d *Decoder) decodeOp() (op Op, err error) {
	s := &d.state
	pos := d.buf.Pos()
	state, state2, posState := s.states(pos)
	b, err := d.rd.DecodeBit(&s.s2[state2].isMatch)
	if err != nil {
		return Op{}, err
	}
	if b == 0 {
		litState := s.litState(d.buf.ByteAtEnd(1), pos)
		match := d.buf.ByteAtEnd(int(s.rep[0]) + 1)
		c, err := s.litCodec.Decode(&d.rd, state, match, litState)
		if err != nil {
			return Op{}, err
		}
		s.updateStateLiteral()
		if err = d.buf.WriteByte(c); err != nil {
			return Op{}, err
		}
		return Lit(c), nil
	}
	if b, err = d.rd.DecodeBit(&s.s1[state].isRep); err != nil {
		return Op{}, err
	}
	var n uint32
	if b == 0 {
		// simple match
		if n, err = s.lenCodec.Decode(&d.rd, posState); err != nil {
			return Op{}, err
		}
		dist, err := s.distCodec.Decode(&d.rd, n)
		if err != nil {
			return Op{}, err
		}
		if dist == eosDist {
			return Op{}, errEOS
		}
		s.rep[3], s.rep[2], s.rep[1], s.rep[0] =
			s.rep[2], s.rep[1], s.rep[0], dist
		s.updateStateMatch()
		return d.apply(dist, n+minMatchLen)
	}
	if b, err = d.rd.DecodeBit(&s.s1[state].isRepG0); err != nil {
		return Op{}, err
	}
	dist := s.rep[0]
	if b == 0 {
		b, err = d.rd.DecodeBit(&s.s2[state2].isRepG0Long)
		if err != nil {
			return Op{}, err
		}
		if b == 0 {
			s.updateStateShortRep()
			return d.apply(dist, 1)
		}
	} else {
		if b, err = d.rd.DecodeBit(&s.s1[state].isRepG1); err != nil {
			return Op{}, err
		}
		if b == 0 {
			dist = s.rep[1]
		} else {
			b, err = d.rd.DecodeBit(&s.s1[state].isRepG2)
			if err != nil {
				return Op{}, err
			}
			if b == 0 {
				dist = s.rep[2]
			} else {
				dist = s.rep[3]
				s.rep[3] = s.rep[2]
			}
			s.rep[2] = s.rep[1]
		}
		s.rep[1] = s.rep[0]
		s.rep[0] = dist
	}
	if n, err = s.repLenCodec.Decode(&d.rd, posState); err != nil {
		return Op{}, err
	}
	s.updateStateRep()
	return d.apply(dist, n+minMatchLen)
}


// apply copies the match into the dictionary buffer. The argument dist
// equals offset - 1.
func (d *Decoder) apply(dist, n uint32) (op Op, err error) {
	if int64(dist) >= d.buf.Pos() || dist >= d.props.DictSize {
		return Op{}, fmt.Errorf(
			"lzma: corrupted stream: match distance %d out of range",
			int64(dist)+1)
	}
	if err = d.buf.WriteMatch(int(n), int(dist)+1); err != nil {
		return Op{}, fmt.Errorf("lzma: corrupted stream: %w", err)
	}
	return Match(dist+1, n), nil
}

// Reader decompresses an LZMA stream.
type Reader struct {
	d   *Decoder
	err error
}

// NewReader creates a reader for the raw LZMA stream in r. The stream must
// be terminated by an end-of-stream marker.
func NewReader(r io.Reader, p DecoderProperties) (*Reader, error) {
	return NewReaderSize(r, p, -1)
}

// NewReaderSize creates a reader for a raw LZMA stream with a known
// uncompressed size. A negative size is treated as unknown.
func NewReaderSize(r io.Reader, p DecoderProperties, size int64,
) (*Reader, error) {
	d, err := NewDecoderSize(r, p, size)
	if err != nil {
		return nil, err
	}
	return &Reader{d: d}, nil
}

// fill decodes operations until the buffer cannot take a match of
// maximum length.
func (r *Reader) fill() error {
	for r.d.buf.Available() >= maxMatchLen {
		if _, err := r.d.readOp(); err != nil {
			return err
		}
	}
	return nil
}

// Read reads the decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.err == nil && len(p) > r.d.buf.Len() {
		r.err = r.fill()
	}
	n, _ = r.d.buf.Read(p)
	if n == 0 && r.err != nil {
		return 0, r.err
	}
	return n, nil
}
