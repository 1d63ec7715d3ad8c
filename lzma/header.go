// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"errors"
	"fmt"
	"math"
)

// HeaderLen is the length of the header of an .lzma file.
const HeaderLen = propertiesLen + 8

// unknownSize marks an unknown uncompressed size in the header.
const unknownSize uint64 = 1<<64 - 1

// Header is the header of the classic .lzma file format. It consists of
// the decoder properties and the little-endian uncompressed size. A
// negative Size is stored as unknown; the stream must then be terminated
// by an end-of-stream marker.
type Header struct {
	DecoderProperties
	Size int64
}

// putLE64 puts the little-endian representation of x into p.
func putLE64(p []byte, x uint64) {
	_ = p[7]
	for i := 0; i < 8; i++ {
		p[i] = byte(x >> (8 * uint(i)))
	}
}

// getLE64 reads a little-endian uint64 value from p.
func getLE64(p []byte) uint64 {
	_ = p[7]
	var x uint64
	for i := 7; i >= 0; i-- {
		x = x<<8 | uint64(p[i])
	}
	return x
}

// AppendBinary appends the HeaderLen bytes of the header to b.
func (h Header) AppendBinary(b []byte) []byte {
	b = h.DecoderProperties.AppendBinary(b)
	s := unknownSize
	if h.Size >= 0 {
		s = uint64(h.Size)
	}
	var a [8]byte
	putLE64(a[:], s)
	return append(b, a[:]...)
}

// UnmarshalBinary decodes a header. An unknown size is returned as -1.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderLen {
		return fmt.Errorf("lzma: header needs %d bytes; got %d",
			HeaderLen, len(data))
	}
	var g Header
	err := g.DecoderProperties.UnmarshalBinary(data[:propertiesLen])
	if err != nil {
		return err
	}
	switch s := getLE64(data[propertiesLen:]); {
	case s == unknownSize:
		g.Size = -1
	case s > math.MaxInt64:
		return errors.New("lzma: uncompressed size in header too large")
	default:
		g.Size = int64(s)
	}
	*h = g
	return nil
}
