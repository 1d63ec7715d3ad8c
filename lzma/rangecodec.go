// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"errors"
	"io"
)

// bitEncoder is implemented by the range encoder, which emits bits and
// updates the probabilities, and by the price counter, which only sums the
// costs.
type bitEncoder interface {
	EncodeBit(b uint32, p *prob) error
	DirectEncodeBit(b uint32) error
}

// priceCounter sums the prices of the bits given to it. It never modifies
// the probabilities and never fails.
type priceCounter struct {
	price uint32
}

// EncodeBit adds the price of bit b under probability p.
func (pc *priceCounter) EncodeBit(b uint32, p *prob) error {
	pc.price += p.price(b)
	return nil
}

// DirectEncodeBit adds the price of a bit with probability 1/2.
func (pc *priceCounter) DirectEncodeBit(b uint32) error {
	pc.price += directBitPrice
	return nil
}

// rangeEncoder implements range encoding of single bits. The low value can
// overflow therefore we need uint64. The cache value is used to handle
// overflows.
type rangeEncoder struct {
	bw       io.ByteWriter
	low      uint64
	cacheLen int64
	n        int64
	nrange   uint32
	cache    byte
}

// init initializes the range encoder.
func (e *rangeEncoder) init(bw io.ByteWriter) {
	*e = rangeEncoder{bw: bw}
	e.restart()
}

// restart resets the coding interval without touching the byte writer or
// the byte counter.
func (e *rangeEncoder) restart() {
	e.low = 0
	e.nrange = 1<<32 - 1
	e.cache = 0
	e.cacheLen = 1
}

// Len returns the number of bytes written to the byte writer.
func (e *rangeEncoder) Len() int64 {
	return e.n
}

// Pending returns the number of bytes that Close would still write.
func (e *rangeEncoder) Pending() int64 {
	return e.cacheLen + 4
}

// DirectEncodeBit encodes the least-significant bit of b with probability 1/2.
func (e *rangeEncoder) DirectEncodeBit(b uint32) error {
	e.nrange >>= 1
	e.low += uint64(e.nrange) & (0 - (uint64(b) & 1))

	// normalize
	const top = 1 << 24
	if e.nrange >= top {
		return nil
	}
	e.nrange <<= 8
	return e.shiftLow()
}

// EncodeBit encodes the least significant bit of b. The p value will be
// updated by the function depending on the bit encoded.
func (e *rangeEncoder) EncodeBit(b uint32, p *prob) error {
	bound := p.bound(e.nrange)
	if b&1 == 0 {
		e.nrange = bound
		p.inc()
	} else {
		e.low += uint64(bound)
		e.nrange -= bound
		p.dec()
	}

	// normalize
	const top = 1 << 24
	if e.nrange >= top {
		return nil
	}
	e.nrange <<= 8
	return e.shiftLow()
}

// Close writes a complete copy of the low value.
func (e *rangeEncoder) Close() error {
	for i := 0; i < 5; i++ {
		if err := e.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}

// Align finishes the current range coded segment and starts a new one. After
// Align all bytes of the segment have been written and the next segment
// starts at byte offset Len().
func (e *rangeEncoder) Align() error {
	if err := e.Close(); err != nil {
		return err
	}
	e.restart()
	return nil
}

// shiftLow shifts the low value for 8 bit. The shifted byte is written into
// the byte writer. The cache value is used to handle overflows.
func (e *rangeEncoder) shiftLow() error {
	if uint32(e.low) < 0xff000000 || (e.low>>32) != 0 {
		tmp := e.cache
		for {
			err := e.bw.WriteByte(tmp + byte(e.low>>32))
			if err != nil {
				return err
			}
			e.n++
			tmp = 0xff
			e.cacheLen--
			if e.cacheLen <= 0 {
				if e.cacheLen < 0 {
					panic("negative cacheLen")
				}
				break
			}
		}
		e.cache = byte(uint32(e.low) >> 24)
	}
	e.cacheLen++
	e.low = uint64(uint32(e.low) << 8)
	return nil
}

// rangeDecoder decodes single bits of the range encoding stream.
type rangeDecoder struct {
	br     io.ByteReader
	nrange uint32
	code   uint32
}

var errFirstByte = errors.New("lzma: first byte of range coded segment not zero")

// init initializes the rangeDecoder. It reads five bytes from the stream and
// may return errors.
func (d *rangeDecoder) init(br io.ByteReader) error {
	*d = rangeDecoder{br: br, nrange: 0xffffffff}

	b, err := d.br.ReadByte()
	if err != nil {
		return err
	}
	if b != 0 {
		return errFirstByte
	}
	for i := 0; i < 4; i++ {
		if err = d.updateCode(); err != nil {
			return err
		}
	}
	if d.code >= d.nrange {
		return errors.New("lzma: d.code >= d.nrange")
	}
	return nil
}

// possiblyAtEnd checks whether the decoder may be at the end of the stream.
func (d *rangeDecoder) possiblyAtEnd() bool {
	return d.code == 0
}

// DirectDecodeBit decodes a bit with probability 1/2. The return value b will
// contain the bit at the least-significant position. All other bits will be
// zero.
func (d *rangeDecoder) DirectDecodeBit() (b uint32, err error) {
	d.nrange >>= 1
	d.code -= d.nrange
	t := 0 - (d.code >> 31)
	d.code += d.nrange & t
	b = (t + 1) & 1

	// normalize
	const top = 1 << 24
	if d.nrange >= top {
		return b, nil
	}
	d.nrange <<= 8
	return b, d.updateCode()
}

// DecodeBit decodes a single bit. The bit will be returned at the
// least-significant position. All other bits will be zero. The probability
// value will be updated.
func (d *rangeDecoder) DecodeBit(p *prob) (b uint32, err error) {
	bound := p.bound(d.nrange)
	if d.code < bound {
		d.nrange = bound
		p.inc()
		b = 0
	} else {
		d.code -= bound
		d.nrange -= bound
		p.dec()
		b = 1
	}

	// normalize
	const top = 1 << 24
	if d.nrange >= top {
		return b, nil
	}
	d.nrange <<= 8
	return b, d.updateCode()
}

// updateCode reads a new byte into the code.
func (d *rangeDecoder) updateCode() error {
	b, err := d.br.ReadByte()
	if err != nil {
		return err
	}
	d.code = (d.code << 8) | uint32(b)
	return nil
}
