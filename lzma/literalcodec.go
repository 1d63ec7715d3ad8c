// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

// literalCodec supports the encoding of literal. It provides 768 probability
// values per literal state. The upper 512 probabilities are used with the
// context of a match bit.
type literalCodec struct {
	probs []prob
}

// init initializes the literal codec. The probability slice is reused if it
// has the right size already.
func (c *literalCodec) init(lc, lp int) {
	switch {
	case !(MinLC <= lc && lc <= MaxLC):
		panic("lc out of range")
	case !(MinLP <= lp && lp <= MaxLP):
		panic("lp out of range")
	}
	n := 0x300 << uint(lc+lp)
	if len(c.probs) != n {
		c.probs = make([]prob, n)
	}
	initProbs(c.probs)
}

// Encode encodes the byte s using the LZMA encoder state, a match byte and
// the literal state. If state is 7 or greater the match byte is used as
// additional context until the first bit differs.
func (c *literalCodec) Encode(e bitEncoder, s byte,
	state uint32, match byte, litState uint32,
) (err error) {
	k := litState * 0x300
	probs := c.probs[k : k+0x300]
	symbol := uint32(1)
	r := uint32(s)
	if state >= 7 {
		m := uint32(match)
		for {
			matchBit := (m >> 7) & 1
			m <<= 1
			bit := (r >> 7) & 1
			r <<= 1
			i := ((1 + matchBit) << 8) | symbol
			if err = e.EncodeBit(bit, &probs[i]); err != nil {
				return err
			}
			symbol = (symbol << 1) | bit
			if matchBit != bit {
				break
			}
			if symbol >= 0x100 {
				break
			}
		}
	}
	for symbol < 0x100 {
		bit := (r >> 7) & 1
		r <<= 1
		if err = e.EncodeBit(bit, &probs[symbol]); err != nil {
			return err
		}
		symbol = (symbol << 1) | bit
	}
	return nil
}

// Price computes the price for encoding s without changing the
// probabilities.
func (c *literalCodec) Price(s byte, state uint32, match byte,
	litState uint32) uint32 {
	var pc priceCounter
	c.Encode(&pc, s, state, match, litState)
	return pc.price
}

// Decode decodes a literal byte using the range decoder as well as the LZMA
// state, a match byte, and the literal state.
func (c *literalCodec) Decode(d *rangeDecoder,
	state uint32, match byte, litState uint32,
) (s byte, err error) {
	k := litState * 0x300
	probs := c.probs[k : k+0x300]
	symbol := uint32(1)
	if state >= 7 {
		m := uint32(match)
		for {
			matchBit := (m >> 7) & 1
			m <<= 1
			i := ((1 + matchBit) << 8) | symbol
			bit, err := d.DecodeBit(&probs[i])
			if err != nil {
				return 0, err
			}
			symbol = (symbol << 1) | bit
			if matchBit != bit {
				break
			}
			if symbol >= 0x100 {
				break
			}
		}
	}
	for symbol < 0x100 {
		bit, err := d.DecodeBit(&probs[symbol])
		if err != nil {
			return 0, err
		}
		symbol = (symbol << 1) | bit
	}
	s = byte(symbol - 0x100)
	return s, nil
}
