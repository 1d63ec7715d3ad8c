// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

// probTree stores enough probability values to be used by the tree codecs.
// Index 0 is never used; the root of the tree is at index 1.
type probTree struct {
	probs []prob
	bits  byte
}

// makeProbTree initializes a probTree structure.
func makeProbTree(bits int) probTree {
	if !(1 <= bits && bits <= 32) {
		panic("bits outside of range [1,32]")
	}
	t := probTree{
		bits:  byte(bits),
		probs: make([]prob, 1<<uint(bits)),
	}
	initProbs(t.probs)
	return t
}

// reset sets all probabilities of the tree back to probInit.
func (t *probTree) reset() { initProbs(t.probs) }

// Bits provides the number of bits for the values to de- or encode.
func (t *probTree) Bits() int {
	return int(t.bits)
}

// treeCodec encodes or decodes values with a fixed bit size. It is using a
// tree of probability value. The root of the tree is the most-significant bit.
type treeCodec struct {
	probTree
}

// makeTreeCodec makes a tree codec. The bits value must be inside the range
// [1,32].
func makeTreeCodec(bits int) treeCodec {
	return treeCodec{makeProbTree(bits)}
}

// Encode encodes a fixed-bit-size value.
func (tc *treeCodec) Encode(e bitEncoder, v uint32) (err error) {
	m := uint32(1)
	for i := tc.Bits() - 1; i >= 0; i-- {
		b := (v >> uint(i)) & 1
		if err := e.EncodeBit(b, &tc.probs[m]); err != nil {
			return err
		}
		m = (m << 1) | b
	}
	return nil
}

// Price returns the price of encoding v.
func (tc *treeCodec) Price(v uint32) uint32 {
	var pc priceCounter
	tc.Encode(&pc, v)
	return pc.price
}

// Decodes uses the range decoder to decode a fixed-bit-size value. Errors may
// be caused by the range decoder.
func (tc *treeCodec) Decode(d *rangeDecoder) (v uint32, err error) {
	m := uint32(1)
	bits := tc.Bits()
	for j := 0; j < bits; j++ {
		b, err := d.DecodeBit(&tc.probs[m])
		if err != nil {
			return 0, err
		}
		m = (m << 1) | b
	}
	return m - (1 << uint(bits)), nil
}

// treeReverseCodec is another tree codec, where the least-significant bit is
// the start of the probability tree.
type treeReverseCodec struct {
	probTree
}

// makeTreeReverseCodec creates treeReverseCodec value. The bits argument must
// be in the range [1,32].
func makeTreeReverseCodec(bits int) treeReverseCodec {
	return treeReverseCodec{makeProbTree(bits)}
}

// Encode encodes a fixed-bit-size value least-significant bit first.
func (tc *treeReverseCodec) Encode(e bitEncoder, v uint32) error {
	return reverseEncode(e, tc.probs, tc.Bits(), v)
}

// Price returns the price of encoding v.
func (tc *treeReverseCodec) Price(v uint32) uint32 {
	var pc priceCounter
	reverseEncode(&pc, tc.probs, tc.Bits(), v)
	return pc.price
}

// Decode decodes a fixed-bit-size value. Errors returned by the range
// decoder will be returned.
func (tc *treeReverseCodec) Decode(d *rangeDecoder) (v uint32, err error) {
	return reverseDecode(d, tc.probs, tc.Bits())
}

// reverseEncode encodes the lowest bits of v starting with the
// least-significant bit. The tree root is probs[1].
func reverseEncode(e bitEncoder, probs []prob, bits int, v uint32) error {
	m := uint32(1)
	for i := 0; i < bits; i++ {
		b := v & 1
		v >>= 1
		if err := e.EncodeBit(b, &probs[m]); err != nil {
			return err
		}
		m = (m << 1) | b
	}
	return nil
}

// reverseDecode is the inverse of reverseEncode.
func reverseDecode(d *rangeDecoder, probs []prob, bits int) (v uint32, err error) {
	m := uint32(1)
	for i := 0; i < bits; i++ {
		b, err := d.DecodeBit(&probs[m])
		if err != nil {
			return 0, err
		}
		m = (m << 1) | b
		v |= b << uint(i)
	}
	return v, nil
}

// directCodec allows the encoding and decoding of values with a fixed number
// of bits. The number of bits must be in the range [1,32].
type directCodec byte

// Bits returns the number of bits supported by this codec.
func (dc directCodec) Bits() int {
	return int(dc)
}

// Encode encodes a value with the fixed number of bits. The
// most-significant bit is encoded first.
func (dc directCodec) Encode(e bitEncoder, v uint32) error {
	for i := dc.Bits() - 1; i >= 0; i-- {
		if err := e.DirectEncodeBit(v >> uint(i)); err != nil {
			return err
		}
	}
	return nil
}

// Price returns the price for the direct bits.
func (dc directCodec) Price() uint32 {
	return uint32(dc.Bits()) * directBitPrice
}

// Decode uses the range decoder to decode a value with the given number of
// given bits. The most-significant bit is decoded first.
func (dc directCodec) Decode(d *rangeDecoder) (v uint32, err error) {
	for i := dc.Bits() - 1; i >= 0; i-- {
		x, err := d.DirectDecodeBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | x
	}
	return v, nil
}
