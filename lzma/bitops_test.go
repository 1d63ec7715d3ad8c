// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"math/bits"
	"math/rand"
	"testing"
)

func TestNlz32(t *testing.T) {
	if k := nlz32(0); k != 32 {
		t.Fatalf("nlz32(0) = %d; want 32", k)
	}
	for i := 0; i < 32; i++ {
		x := uint32(1) << uint(i)
		if k := nlz32(x); k != 31-i {
			t.Errorf("nlz32(%#08x) = %d; want %d", x, k, 31-i)
		}
	}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		x := r.Uint32() >> uint(r.Intn(32))
		if k, want := nlz32(x), bits.LeadingZeros32(x); k != want {
			t.Fatalf("nlz32(%#08x) = %d; want %d", x, k, want)
		}
	}
}
