// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import "errors"

// maxPosBits defines the number of bits of the position value that are used to
// to compute the posState value. The value is used to select the tree codec
// for length encoding and decoding.
const maxPosBits = 4

// minMatchLen and maxMatchLen give the minimum and maximum values for
// encoding and decoding length values. minMatchLen is also used as base
// for the encoded length values.
const (
	minMatchLen = 2
	maxMatchLen = minMatchLen + 16 + 256 - 1
)

// Sizes of the three length tiers.
const (
	lowLenBits  = 3
	midLenBits  = 3
	highLenBits = 8
	lowLens     = 1 << lowLenBits
	midLens     = 1 << midLenBits
)

var errLengthRange = errors.New("lzma: match length out of range")

// lengthCodec support the encoding of the length value.
type lengthCodec struct {
	choice [2]prob
	low    [1 << maxPosBits]treeCodec
	mid    [1 << maxPosBits]treeCodec
	high   treeCodec
}

// init initializes a new length codec. Already allocated trees are reset
// instead of allocated again.
func (lc *lengthCodec) init() {
	initProbs(lc.choice[:])
	if lc.high.probs != nil {
		for i := range lc.low {
			lc.low[i].reset()
			lc.mid[i].reset()
		}
		lc.high.reset()
		return
	}
	for i := range lc.low {
		lc.low[i] = makeTreeCodec(lowLenBits)
	}
	for i := range lc.mid {
		lc.mid[i] = makeTreeCodec(midLenBits)
	}
	lc.high = makeTreeCodec(highLenBits)
}

// Encode encodes the length offset. The length offset l can be compute by
// subtracting minMatchLen (2) from the actual length.
//
//	l = length - minMatchLen
func (lc *lengthCodec) Encode(e bitEncoder, l uint32, posState uint32,
) (err error) {
	if l > maxMatchLen-minMatchLen {
		return errLengthRange
	}
	if l < lowLens {
		if err = e.EncodeBit(0, &lc.choice[0]); err != nil {
			return err
		}
		return lc.low[posState].Encode(e, l)
	}
	if err = e.EncodeBit(1, &lc.choice[0]); err != nil {
		return err
	}
	if l < lowLens+midLens {
		if err = e.EncodeBit(0, &lc.choice[1]); err != nil {
			return err
		}
		return lc.mid[posState].Encode(e, l-lowLens)
	}
	if err = e.EncodeBit(1, &lc.choice[1]); err != nil {
		return err
	}
	return lc.high.Encode(e, l-lowLens-midLens)
}

// Price returns the price for encoding the length offset l. Offsets that
// cannot be encoded get price 0.
func (lc *lengthCodec) Price(l uint32, posState uint32) uint32 {
	var pc priceCounter
	if err := lc.Encode(&pc, l, posState); err != nil {
		return 0
	}
	return pc.price
}

// Decode reads the length offset. Add minMatchLen to compute the actual length
// to the length offset l.
func (lc *lengthCodec) Decode(d *rangeDecoder, posState uint32,
) (l uint32, err error) {
	var b uint32
	if b, err = d.DecodeBit(&lc.choice[0]); err != nil {
		return 0, err
	}
	if b == 0 {
		return lc.low[posState].Decode(d)
	}
	if b, err = d.DecodeBit(&lc.choice[1]); err != nil {
		return 0, err
	}
	if b == 0 {
		l, err = lc.mid[posState].Decode(d)
		return l + lowLens, err
	}
	l, err = lc.high.Decode(d)
	return l + lowLens + midLens, err
}
