// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import "sync"

// moveBits defines the number of bits used for the updates of probability
// values.
const moveBits = 5

// probBits defines the number of bits of a probability value.
const probBits = 11

// probInit defines 0.5 as initial value for prob values.
const probInit prob = 1 << (probBits - 1)

// Type prob represents probabilities. The type can also be used to encode and
// decode single bits.
type prob uint16

// Dec decreases the probability. The decrease is proportional to the
// probability value.
func (p *prob) dec() {
	*p -= *p >> moveBits
}

// Inc increases the probability. The Increase is proportional to the
// difference of 1 and the probability value.
func (p *prob) inc() {
	*p += ((1 << probBits) - *p) >> moveBits
}

// Computes the new bound for a given range using the probability value.
func (p prob) bound(r uint32) uint32 {
	return (r >> probBits) * uint32(p)
}

// initProbs sets all probabilities in the slice to probInit.
func initProbs(p []prob) {
	for i := range p {
		p[i] = probInit
	}
}

// Prices are fixed-point numbers. The price of a single bit with a
// probability of 1/2 is 1<<bitPriceShift.
const (
	bitPriceShift = 4
	// number of low bits of a prob value ignored by the price table
	priceReduceBits = 4
	priceTableLen   = (1 << probBits) >> priceReduceBits
)

// directBitPrice is the price of a bit encoded without a probability.
const directBitPrice = 1 << bitPriceShift

var (
	priceOnce  sync.Once
	priceTable [priceTableLen]uint32
)

// initPriceTable computes approximations of -log2(p/2^11) by repeated
// squaring.
func initPriceTable() {
	for i := range priceTable {
		w := uint32(i<<priceReduceBits) + 1<<(priceReduceBits-1)
		var bitCount uint32
		for j := 0; j < bitPriceShift; j++ {
			w *= w
			bitCount <<= 1
			for w >= 1<<16 {
				w >>= 1
				bitCount++
			}
		}
		priceTable[i] = probBits<<bitPriceShift - 15 - bitCount
	}
}

// prices returns the shared price table. It is built on first use and
// never modified afterwards.
func prices() *[priceTableLen]uint32 {
	priceOnce.Do(initPriceTable)
	return &priceTable
}

// price0 returns the price of encoding a zero bit.
func (p prob) price0() uint32 {
	return prices()[p>>priceReduceBits]
}

// price1 returns the price of encoding a one bit.
func (p prob) price1() uint32 {
	return prices()[(p^(1<<probBits-1))>>priceReduceBits]
}

// price returns the price for encoding the least-significant bit of b.
func (p prob) price(b uint32) uint32 {
	if b&1 == 0 {
		return p.price0()
	}
	return p.price1()
}
