// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"errors"
	"fmt"
)

// Maximum and minimum values for the individual properties.
const (
	MinLC       = 0
	MaxLC       = 8
	MinLP       = 0
	MaxLP       = 4
	MinPB       = 0
	MaxPB       = 4
	MinDictSize = 1 << 12
	MaxDictSize = 1<<32 - 1
)

// minBufSize is the smallest working buffer used by the Writer.
const minBufSize = 256 << 10

// Properties define the literal and position contexts of the LZMA
// algorithm.
type Properties struct {
	// number of literal context bits
	LC int
	// number of literal position bits
	LP int
	// number of position bits
	PB int
}

// Verify checks the properties for correctness.
func (p *Properties) Verify() error {
	if p == nil {
		return errors.New("lzma: properties are nil")
	}
	if !(MinLC <= p.LC && p.LC <= MaxLC) {
		return fmt.Errorf("lzma: lc=%d out of range [%d,%d]",
			p.LC, MinLC, MaxLC)
	}
	if !(MinLP <= p.LP && p.LP <= MaxLP) {
		return fmt.Errorf("lzma: lp=%d out of range [%d,%d]",
			p.LP, MinLP, MaxLP)
	}
	if !(MinPB <= p.PB && p.PB <= MaxPB) {
		return fmt.Errorf("lzma: pb=%d out of range [%d,%d]",
			p.PB, MinPB, MaxPB)
	}
	return nil
}

// code returns the properties encoded as single byte.
func (p Properties) code() byte {
	return byte((p.PB*5+p.LP)*9 + p.LC)
}

// EncoderProperties contain all parameters of an encoding session. Values
// are compared with ==; the Writer keeps its buffers if it is initialized
// again with equal properties.
type EncoderProperties struct {
	// size of the dictionary in bytes
	DictSize int
	// size of the working buffer of the Writer; zero selects the default
	BufSize int
	Properties
	// ZeroProperties requests lc=lp=pb=0, which SetDefaults would
	// otherwise replace.
	ZeroProperties bool
	// EOSMarker requests the end-of-stream marker on Close.
	EOSMarker bool
}

// NewEncoderProperties creates encoder properties and verifies them
// immediately.
func NewEncoderProperties(dictSize, bufSize, lc, lp, pb int, eos bool,
) (p EncoderProperties, err error) {
	p = EncoderProperties{
		DictSize:   dictSize,
		BufSize:    bufSize,
		Properties: Properties{LC: lc, LP: lp, PB: pb},
		EOSMarker:  eos,
	}
	p.ZeroProperties = p.Properties == Properties{}
	if err = p.Verify(); err != nil {
		return EncoderProperties{}, err
	}
	return p, nil
}

// SetDefaults replaces zero values with defaults. A zero Properties value
// is replaced by lc=3, lp=0 and pb=2 unless ZeroProperties is set.
func (p *EncoderProperties) SetDefaults() {
	if p.DictSize == 0 {
		p.DictSize = 8 << 20
	}
	if p.Properties == (Properties{}) && !p.ZeroProperties {
		p.Properties = Properties{LC: 3, LP: 0, PB: 2}
	}
	if p.BufSize == 0 {
		p.BufSize = 2 * p.DictSize
		if p.BufSize < minBufSize {
			p.BufSize = minBufSize
		}
	}
}

// Verify checks the encoder properties.
func (p *EncoderProperties) Verify() error {
	if p == nil {
		return errors.New("lzma: encoder properties are nil")
	}
	if err := p.Properties.Verify(); err != nil {
		return err
	}
	if !(MinDictSize <= int64(p.DictSize) && int64(p.DictSize) <= MaxDictSize) {
		return fmt.Errorf("lzma: dictionary size %d out of range [%d,%d]",
			p.DictSize, MinDictSize, int64(MaxDictSize))
	}
	if p.BufSize < 0 {
		return errors.New("lzma: buffer size must not be negative")
	}
	if p.BufSize > 0 && p.BufSize <= p.DictSize {
		return errors.New(
			"lzma: buffer size must be zero or larger than the dictionary size")
	}
	return nil
}

// DecoderProperties returns the part of the properties the decoder needs.
func (p EncoderProperties) DecoderProperties() DecoderProperties {
	return DecoderProperties{
		DictSize:   uint32(p.DictSize),
		Properties: p.Properties,
	}
}

// DecoderProperties are the properties transmitted to the decoder.
type DecoderProperties struct {
	DictSize uint32
	Properties
}

// Verify checks the decoder properties.
func (p *DecoderProperties) Verify() error {
	if p == nil {
		return errors.New("lzma: decoder properties are nil")
	}
	if p.DictSize < MinDictSize {
		return fmt.Errorf("lzma: dictionary size %d less than %d",
			p.DictSize, MinDictSize)
	}
	return p.Properties.Verify()
}

// propertiesLen is the length of the binary representation of the decoder
// properties.
const propertiesLen = 5

// AppendBinary appends the properties byte and the little-endian
// dictionary size to p.
func (p DecoderProperties) AppendBinary(b []byte) []byte {
	return append(b, p.Properties.code(),
		byte(p.DictSize), byte(p.DictSize>>8),
		byte(p.DictSize>>16), byte(p.DictSize>>24))
}

// UnmarshalBinary decodes the five bytes produced by AppendBinary.
// Dictionary sizes less than MinDictSize are raised to MinDictSize as the
// LZMA SDK decoder does.
func (p *DecoderProperties) UnmarshalBinary(data []byte) error {
	if len(data) != propertiesLen {
		return fmt.Errorf("lzma: properties need %d bytes; got %d",
			propertiesLen, len(data))
	}
	x := int(data[0])
	if x >= (MaxPB+1)*(MaxLP+1)*(MaxLC+1) {
		return fmt.Errorf("lzma: invalid properties byte %#02x", data[0])
	}
	var q DecoderProperties
	q.LC = x % 9
	x /= 9
	q.LP = x % 5
	q.PB = x / 5
	q.DictSize = uint32(data[1]) | uint32(data[2])<<8 |
		uint32(data[3])<<16 | uint32(data[4])<<24
	if q.DictSize < MinDictSize {
		q.DictSize = MinDictSize
	}
	*p = q
	return nil
}
