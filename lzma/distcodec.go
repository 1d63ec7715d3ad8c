// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import "sync"

// Constants used by the distance codec.
const (
	// minimum supported distance
	minDistance = 1
	// maximum supported distance, value is used for the eos marker.
	maxDistance = 1<<32 - 1
	// distance value (distance - 1) signaling the end of stream
	eosDist = 1<<32 - 1
	// number of the supported len states
	lenStates = 4
	// start for the position models
	startPosModel = 4
	// first index with align bits support
	endPosModel = 14
	// bits for the position slots
	posSlotBits = 6
	// number of align bits
	alignBits = 4
	// distances below fullDistances have all footer bits modeled
	fullDistances = 1 << (endPosModel >> 1)
	// size of the shared probability pool for the modeled footer bits;
	// index 0 is unused
	posModelLen = 1 + fullDistances - endPosModel
)

// slotTableBits gives the size of the table for direct slot lookups.
const slotTableBits = 13

var (
	slotOnce  sync.Once
	slotTable [1 << slotTableBits]byte
)

func initSlotTable() {
	for d := range slotTable {
		slotTable[d] = byte(computeSlot(uint32(d)))
	}
}

// computeSlot derives the slot from the position of the highest bit and the
// bit below it.
func computeSlot(dist uint32) uint32 {
	if dist < startPosModel {
		return dist
	}
	k := uint32(31 - nlz32(dist))
	return k<<1 | (dist>>(k-1))&1
}

// distSlot returns the slot for the distance value dist, which is the match
// distance minus one. Small distances are looked up in a table that is
// computed once.
func distSlot(dist uint32) uint32 {
	if dist < 1<<slotTableBits {
		slotOnce.Do(initSlotTable)
		return uint32(slotTable[dist])
	}
	return computeSlot(dist)
}

// footerBits returns the number of bits following the slot. The slot must be
// at least startPosModel.
func footerBits(slot uint32) uint32 {
	return (slot >> 1) - 1
}

// distBase returns the smallest distance value that is mapped to the slot.
func distBase(slot uint32) uint32 {
	if slot < startPosModel {
		return slot
	}
	return (2 | (slot & 1)) << footerBits(slot)
}

// lenState converts the length offset l to a supported lenState value.
func lenState(l uint32) uint32 {
	if l >= lenStates {
		l = lenStates - 1
	}
	return l
}

// distCodec provides encoding and decoding of distance values.
type distCodec struct {
	posSlotCodecs [lenStates]treeCodec
	posModel      [posModelLen]prob
	alignCodec    treeReverseCodec
}

// init initializes the distance codec. Trees allocated before are reset.
func (dc *distCodec) init() {
	initProbs(dc.posModel[:])
	if dc.alignCodec.probs != nil {
		for i := range dc.posSlotCodecs {
			dc.posSlotCodecs[i].reset()
		}
		dc.alignCodec.reset()
		return
	}
	for i := range dc.posSlotCodecs {
		dc.posSlotCodecs[i] = makeTreeCodec(posSlotBits)
	}
	dc.alignCodec = makeTreeReverseCodec(alignBits)
}

// Encode encodes the distance using the length offset l. Dist can have
// values from the full range of uint32 values. To get the distance offset
// the actual match distance has to be decreased by 1. A distance offset of
// 0xffffffff (eos) indicates the end of the stream.
func (dc *distCodec) Encode(e bitEncoder, dist uint32, l uint32) (err error) {
	slot := distSlot(dist)
	if err = dc.posSlotCodecs[lenState(l)].Encode(e, slot); err != nil {
		return err
	}
	if slot < startPosModel {
		return nil
	}
	bits := footerBits(slot)
	base := distBase(slot)
	u := dist - base
	if slot < endPosModel {
		return reverseEncode(e, dc.posModel[base-slot:], int(bits), u)
	}
	dic := directCodec(bits - alignBits)
	if err = dic.Encode(e, u>>alignBits); err != nil {
		return err
	}
	return dc.alignCodec.Encode(e, u)
}

// Price computes the price for encoding dist with length offset l.
func (dc *distCodec) Price(dist uint32, l uint32) uint32 {
	var pc priceCounter
	dc.Encode(&pc, dist, l)
	return pc.price
}

// Decode decodes the distance offset using the parameter l. The dist value
// 0xffffffff (eos) indicates the end of the stream. Add one to the distance
// offset to get the actual match distance.
func (dc *distCodec) Decode(d *rangeDecoder, l uint32) (dist uint32, err error) {
	slot, err := dc.posSlotCodecs[lenState(l)].Decode(d)
	if err != nil {
		return 0, err
	}

	// slot equals distance
	if slot < startPosModel {
		return slot, nil
	}

	bits := footerBits(slot)
	dist = distBase(slot)
	var u uint32
	if slot < endPosModel {
		u, err = reverseDecode(d, dc.posModel[dist-slot:], int(bits))
		if err != nil {
			return 0, err
		}
		return dist + u, nil
	}

	// direct encoding and a single model for the four align bits
	dic := directCodec(bits - alignBits)
	if u, err = dic.Decode(d); err != nil {
		return 0, err
	}
	dist += u << alignBits
	if u, err = dc.alignCodec.Decode(d); err != nil {
		return 0, err
	}
	return dist + u, nil
}
