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
	"github.com/ulikunitz/lzmaenc/internal/xlog"
)

// Exported errors of the package.
var (
	// ErrClosed is returned by all methods of a closed encoder or writer.
	ErrClosed = errors.New("lzma: already closed")
	// ErrNotInitialized is returned by Writer methods before Init.
	ErrNotInitialized = errors.New("lzma: writer not initialized")
	// ErrUnsupported is returned by operations a write-only stream
	// doesn't provide.
	ErrUnsupported = fmt.Errorf("lzma: %w", errors.ErrUnsupported)
)

// opEncoder encodes literals and matches into the range encoder. The
// dictionary buffer provides the bytes preceding the current position.
type opEncoder struct {
	dict     lz.Buffer
	dictSize int64
	state    state
	re       rangeEncoder
}

// init initializes the encoder. The probabilities are reset.
func (e *opEncoder) init(bw io.ByteWriter, p EncoderProperties) error {
	if err := e.dict.Init(p.DictSize, 2*p.DictSize); err != nil {
		return err
	}
	e.dictSize = int64(p.DictSize)
	e.state.init(p.Properties)
	e.re.init(bw)
	return nil
}

// reset puts the encoder back into its initial state.
func (e *opEncoder) reset(bw io.ByteWriter) {
	e.dict.Reset()
	e.state.reset()
	e.re.init(bw)
}

// pos returns the number of bytes encoded.
func (e *opEncoder) pos() int64 { return e.dict.Pos() }

// makeRoom drops the consumed bytes of the dictionary buffer if the next
// operation might not fit.
func (e *opEncoder) makeRoom() {
	if e.dict.Available() < maxMatchLen {
		e.dict.WriteTo(io.Discard)
	}
}

func iverson(f bool) uint32 {
	if f {
		return 1
	}
	return 0
}

// repIndex returns the index of dist in the rep array or 4 if dist is
// not a repeated distance.
func (e *opEncoder) repIndex(dist uint32) int {
	g := 0
	for ; g < 4; g++ {
		if e.state.rep[g] == dist {
			break
		}
	}
	return g
}

// encodeLiteral encodes the bits of the literal c without updating the
// state.
func (e *opEncoder) encodeLiteral(be bitEncoder, c byte) error {
	pos := e.pos()
	state, state2, _ := e.state.states(pos)
	if err := be.EncodeBit(0, &e.state.s2[state2].isMatch); err != nil {
		return err
	}
	litState := e.state.litState(e.dict.ByteAtEnd(1), pos)
	match := e.dict.ByteAtEnd(int(e.state.rep[0]) + 1)
	return e.state.litCodec.Encode(be, c, state, match, litState)
}

// encodeMatch encodes the bits of a match without updating the state. The
// argument dist equals offset - 1.
func (e *opEncoder) encodeMatch(be bitEncoder, dist, matchLen uint32) error {
	s := &e.state
	state, state2, posState := s.states(e.pos())
	var err error
	if err = be.EncodeBit(1, &s.s2[state2].isMatch); err != nil {
		return err
	}
	g := e.repIndex(dist)
	b := iverson(g < 4)
	if err = be.EncodeBit(b, &s.s1[state].isRep); err != nil {
		return err
	}
	n := matchLen - minMatchLen
	if b == 0 {
		// simple match
		if err = s.lenCodec.Encode(be, n, posState); err != nil {
			return err
		}
		return s.distCodec.Encode(be, dist, n)
	}
	b = iverson(g != 0)
	if err = be.EncodeBit(b, &s.s1[state].isRepG0); err != nil {
		return err
	}
	if b == 0 {
		// g == 0
		b = iverson(matchLen != 1)
		if err = be.EncodeBit(b, &s.s2[state2].isRepG0Long); err != nil {
			return err
		}
		if b == 0 {
			return nil
		}
	} else {
		// g in {1,2,3}
		b = iverson(g != 1)
		if err = be.EncodeBit(b, &s.s1[state].isRepG1); err != nil {
			return err
		}
		if b == 1 {
			// g in {2,3}
			b = iverson(g != 2)
			if err = be.EncodeBit(b, &s.s1[state].isRepG2); err != nil {
				return err
			}
		}
	}
	return s.repLenCodec.Encode(be, n, posState)
}

// verifyMatch checks whether the match can be encoded at the current
// position. The argument dist equals offset - 1.
func (e *opEncoder) verifyMatch(dist, matchLen uint32) error {
	if !(minMatchLen <= matchLen && matchLen <= maxMatchLen) &&
		!(dist == e.state.rep[0] && matchLen == 1) {
		return fmt.Errorf(
			"lzma: match length %d out of range; dist %d rep[0] %d",
			matchLen, dist, e.state.rep[0])
	}
	if int64(dist) >= e.pos() || int64(dist) >= e.dictSize {
		return fmt.Errorf("lzma: match distance %d out of range", dist+1)
	}
	return nil
}

func (e *opEncoder) writeLiteral(c byte) error {
	e.makeRoom()
	if err := e.encodeLiteral(&e.re, c); err != nil {
		return err
	}
	e.state.updateStateLiteral()
	return e.dict.WriteByte(c)
}

// writeMatch writes a match. The argument dist equals offset - 1.
func (e *opEncoder) writeMatch(dist, matchLen uint32) error {
	if err := e.verifyMatch(dist, matchLen); err != nil {
		return err
	}
	e.makeRoom()
	g := e.repIndex(dist)
	if err := e.encodeMatch(&e.re, dist, matchLen); err != nil {
		return err
	}
	s := &e.state
	switch {
	case g == 4:
		s.rep[3], s.rep[2], s.rep[1], s.rep[0] =
			s.rep[2], s.rep[1], s.rep[0], dist
		s.updateStateMatch()
	case g == 0 && matchLen == 1:
		s.updateStateShortRep()
	default:
		if g >= 2 {
			if g == 3 {
				s.rep[3] = s.rep[2]
			}
			s.rep[2] = s.rep[1]
		}
		if g >= 1 {
			s.rep[1] = s.rep[0]
			s.rep[0] = dist
		}
		s.updateStateRep()
	}
	return e.dict.WriteMatch(int(matchLen), int(dist)+1)
}

// writeEOS writes the end-of-stream marker.
func (e *opEncoder) writeEOS() error {
	xlog.Printf(debug, "end-of-stream marker at position %d", e.pos())
	return e.encodeMatch(&e.re, eosDist, minMatchLen)
}

// literalPrice returns the price of c as next literal.
func (e *opEncoder) literalPrice(c byte) uint32 {
	var pc priceCounter
	e.encodeLiteral(&pc, c)
	return pc.price
}

// matchPrice returns the price of the match as next operation. The
// argument dist equals offset - 1.
func (e *opEncoder) matchPrice(dist, matchLen uint32) uint32 {
	if e.verifyMatch(dist, matchLen) != nil {
		return 0
	}
	var pc priceCounter
	e.encodeMatch(&pc, dist, matchLen)
	return pc.price
}

// Encoder encodes a sequence of literals and matches provided by a match
// finder into an LZMA stream. The Encoder keeps the dictionary required
// for the literal contexts.
//
// An Encoder must not be used by multiple goroutines at the same time.
type Encoder struct {
	props EncoderProperties
	enc   opEncoder
	bw    *bufio.Writer
	z     io.Writer
	err   error
}

// NewEncoder creates a new encoder writing the LZMA stream to z.
func NewEncoder(z io.Writer, p EncoderProperties) (*Encoder, error) {
	if z == nil {
		return nil, errors.New("lzma: writer must not be nil")
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	e := &Encoder{props: p, z: z, bw: bufio.NewWriter(z)}
	if err := e.enc.init(e.bw, p); err != nil {
		return nil, err
	}
	return e, nil
}

// Properties returns the encoder properties.
func (e *Encoder) Properties() EncoderProperties { return e.props }

// Reset restarts the encoder with fresh probabilities and an empty
// dictionary. Data not flushed before is discarded.
func (e *Encoder) Reset() {
	e.bw.Reset(e.z)
	e.enc.reset(e.bw)
	e.err = nil
}

// Pos returns the number of uncompressed bytes encoded.
func (e *Encoder) Pos() int64 { return e.enc.pos() }

// Compressed returns the number of bytes produced by the range encoder.
func (e *Encoder) Compressed() int64 { return e.enc.re.Len() }

// ClosedSize returns the size the stream would have if it were closed now
// without end-of-stream marker.
func (e *Encoder) ClosedSize() int64 {
	return e.enc.re.Len() + e.enc.re.Pending()
}

// WriteLiteral encodes the byte c.
func (e *Encoder) WriteLiteral(c byte) error {
	if e.err != nil {
		return e.err
	}
	if err := e.enc.writeLiteral(c); err != nil {
		e.err = err
		return err
	}
	return nil
}

// WriteMatch encodes a match with distance dist and length n. The
// distance must be in the range [1,min(Pos(),DictSize)] and the length in
// the range [2,273]. A length of 1 is only allowed for a repetition of the
// last distance.
func (e *Encoder) WriteMatch(dist, n uint32) error {
	if e.err != nil {
		return e.err
	}
	if dist < minDistance {
		return fmt.Errorf("lzma: match distance %d out of range", dist)
	}
	if err := e.enc.writeMatch(dist-1, n); err != nil {
		// range errors are detected before any bit is written
		if e.enc.verifyMatch(dist-1, n) == nil {
			e.err = err
		}
		return err
	}
	return nil
}

// WriteOp encodes a literal or a match operation.
func (e *Encoder) WriteOp(op Op) error {
	if op.IsLiteral() {
		return e.WriteLiteral(op.Lit)
	}
	return e.WriteMatch(op.Dist, op.Len)
}

// LiteralPrice returns the price of c as next operation. Prices are
// measured in 1/16 bits.
func (e *Encoder) LiteralPrice(c byte) uint32 {
	return e.enc.literalPrice(c)
}

// MatchPrice returns the price of the match as next operation. Zero is
// returned for matches that cannot be encoded.
func (e *Encoder) MatchPrice(dist, n uint32) uint32 {
	if dist < minDistance {
		return 0
	}
	return e.enc.matchPrice(dist-1, n)
}

// Align completes the current range-coded segment and writes all its
// bytes. The probabilities and the dictionary are kept; the next segment
// starts at byte offset Compressed().
func (e *Encoder) Align() error {
	if e.err != nil {
		return e.err
	}
	if err := e.enc.re.Align(); err != nil {
		e.err = err
		return err
	}
	return e.Flush()
}

// Flush writes the buffered output to the underlying writer. Bytes kept
// by the range encoder for carry propagation are not written.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.bw.Flush(); err != nil {
		e.err = err
		return err
	}
	if f, ok := e.z.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			e.err = err
			return err
		}
	}
	return nil
}

// Close writes the end-of-stream marker if requested by the properties and
// terminates the range encoder.
func (e *Encoder) Close() error {
	if e.err != nil {
		return e.err
	}
	if e.props.EOSMarker {
		if err := e.enc.writeEOS(); err != nil {
			e.err = err
			return err
		}
	}
	if err := e.enc.re.Close(); err != nil {
		e.err = err
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	e.err = ErrClosed
	return nil
}
