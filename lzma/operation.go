// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import "fmt"

// Op is a single token of the LZMA stream: a literal byte or a match
// copying Len bytes from Dist bytes back. Literals have Dist zero.
type Op struct {
	Dist uint32
	Len  uint32
	Lit  byte
}

// Lit creates a literal operation.
func Lit(c byte) Op { return Op{Len: 1, Lit: c} }

// Match creates a match operation. The distance dist must be at least 1.
func Match(dist, n uint32) Op { return Op{Dist: dist, Len: n} }

// IsLiteral reports whether the operation is a literal.
func (op Op) IsLiteral() bool { return op.Dist == 0 }

// String returns a string representation for the operation.
func (op Op) String() string {
	if op.IsLiteral() {
		return fmt.Sprintf("lit(%02x %q)", op.Lit, op.Lit)
	}
	return fmt.Sprintf("match(%d,%d)", op.Dist, op.Len)
}
