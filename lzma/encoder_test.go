// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

// opGenerator creates random but valid sequences of operations. It tracks
// the repeated distances like the encoder does, so that all kinds of
// matches including short repetitions are generated.
type opGenerator struct {
	r        *rand.Rand
	dictSize int
	data     []byte
	reps     [4]uint32
}

func newOpGenerator(seed int64, dictSize int) *opGenerator {
	return &opGenerator{
		r:        rand.New(rand.NewSource(seed)),
		dictSize: dictSize,
		reps:     [4]uint32{1, 1, 1, 1},
	}
}

const alphabet = "abcdefghij klmnop\n"

func (g *opGenerator) literal() Op {
	var c byte
	if g.r.Intn(8) == 0 {
		c = byte(g.r.Intn(256))
	} else {
		c = alphabet[g.r.Intn(len(alphabet))]
	}
	g.data = append(g.data, c)
	return Lit(c)
}

func (g *opGenerator) maxDist() uint32 {
	n := len(g.data)
	if n > g.dictSize {
		n = g.dictSize
	}
	return uint32(n)
}

func (g *opGenerator) matchLen() uint32 {
	if g.r.Intn(20) == 0 {
		return minMatchLen + uint32(g.r.Intn(maxMatchLen-minMatchLen+1))
	}
	return minMatchLen + uint32(g.r.Intn(16))
}

func (g *opGenerator) next() Op {
	maxDist := g.maxDist()
	if maxDist == 0 || g.r.Intn(3) == 0 {
		return g.literal()
	}
	var dist, n uint32
	switch k := g.r.Intn(8); {
	case k == 0:
		// short rep
		dist, n = g.reps[0], 1
	case k < 4:
		dist, n = g.reps[g.r.Intn(4)], g.matchLen()
	default:
		dist, n = 1+uint32(g.r.Intn(int(maxDist))), g.matchLen()
	}
	if dist > maxDist {
		return g.literal()
	}
	i := 0
	for ; i < 4; i++ {
		if g.reps[i] == dist {
			break
		}
	}
	if i == 4 {
		i = 3
	}
	copy(g.reps[1:i+1], g.reps[:i])
	g.reps[0] = dist
	for j := uint32(0); j < n; j++ {
		g.data = append(g.data, g.data[len(g.data)-int(dist)])
	}
	return Match(dist, n)
}

func (g *opGenerator) ops(n int) []Op {
	ops := make([]Op, n)
	for i := range ops {
		ops[i] = g.next()
	}
	return ops
}

func testProps(lc, lp, pb int, eos bool) EncoderProperties {
	return EncoderProperties{
		DictSize:   MinDictSize,
		Properties: Properties{LC: lc, LP: lp, PB: pb},
		EOSMarker:  eos,
	}
}

func encodeOps(t *testing.T, p EncoderProperties, ops []Op) []byte {
	t.Helper()
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, p)
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	for i, op := range ops {
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("#%d WriteOp(%v) error %s", i, op, err)
		}
	}
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	if e.Compressed() != int64(buf.Len()) {
		t.Fatalf("e.Compressed() = %d; want %d", e.Compressed(),
			buf.Len())
	}
	return buf.Bytes()
}

func decodeOps(t *testing.T, p EncoderProperties, data []byte, size int64,
) []Op {
	t.Helper()
	d, err := NewDecoderSize(bytes.NewReader(data), p.DecoderProperties(),
		size)
	if err != nil {
		t.Fatalf("NewDecoder error %s", err)
	}
	var ops []Op
	for {
		op, err := d.ReadOp()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("#%d ReadOp error %s", len(ops), err)
		}
		ops = append(ops, op)
	}
	return ops
}

func TestEncoderRoundTrip(t *testing.T) {
	for _, lc := range []int{0, 3, 8} {
		for _, lp := range []int{0, 2, 4} {
			for _, pb := range []int{0, 2, 4} {
				g := newOpGenerator(int64(lc*25+lp*5+pb), MinDictSize)
				ops := g.ops(3000)
				size := int64(len(g.data))
				for _, eos := range []bool{false, true} {
					p := testProps(lc, lp, pb, eos)
					data := encodeOps(t, p, ops)
					if eos {
						size = -1
					}
					got := decodeOps(t, p, data, size)
					if diff := pretty.Diff(got, ops); len(diff) > 0 {
						t.Fatalf("lc=%d lp=%d pb=%d eos=%t: %s",
							lc, lp, pb, eos, diff[:1])
					}
				}
			}
		}
	}
}

func TestEncoderDeterministic(t *testing.T) {
	g := newOpGenerator(1, MinDictSize)
	ops := g.ops(5000)
	p := testProps(3, 0, 2, true)
	a := encodeOps(t, p, ops)

	// price queries must not change the output
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, p)
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	for i, op := range ops {
		e.LiteralPrice(byte(i))
		e.MatchPrice(1, 2)
		e.MatchPrice(uint32(i), minMatchLen+uint32(i)%16)
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("#%d WriteOp error %s", i, err)
		}
	}
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	if !bytes.Equal(a, buf.Bytes()) {
		t.Fatalf("price queries changed the encoded stream")
	}

	buf.Reset()
	e.Reset()
	for i, op := range ops {
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("#%d WriteOp after Reset error %s", i, err)
		}
	}
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	if !bytes.Equal(a, buf.Bytes()) {
		t.Fatalf("stream differs after Reset")
	}
}

func TestEncoderPrices(t *testing.T) {
	g := newOpGenerator(2, MinDictSize)
	ops := g.ops(20000)
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, testProps(3, 0, 2, false))
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	var sum uint64
	for i, op := range ops {
		var p uint32
		if op.IsLiteral() {
			p = e.LiteralPrice(op.Lit)
		} else {
			p = e.MatchPrice(op.Dist, op.Len)
		}
		sum += uint64(p)
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("#%d WriteOp error %s", i, err)
		}
	}
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	estimate := int64(sum / (8 << bitPriceShift))
	n := e.Compressed()
	t.Logf("estimated %d bytes; compressed %d bytes", estimate, n)
	delta := estimate - n
	if delta < 0 {
		delta = -delta
	}
	if delta > n/10+16 {
		t.Fatalf("estimate %d too far from compressed size %d",
			estimate, n)
	}
}

func TestEncoderAlign(t *testing.T) {
	g := newOpGenerator(3, MinDictSize)
	ops := g.ops(4000)
	p := testProps(3, 0, 2, true)
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, p)
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	const half = 2000
	for _, op := range ops[:half] {
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("WriteOp error %s", err)
		}
	}
	if err = e.Align(); err != nil {
		t.Fatalf("e.Align() error %s", err)
	}
	offset := e.Compressed()
	if int64(buf.Len()) != offset {
		t.Fatalf("%d bytes written after Align; want %d", buf.Len(),
			offset)
	}
	for _, op := range ops[half:] {
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("WriteOp error %s", err)
		}
	}
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	data := buf.Bytes()
	if data[offset] != 0 {
		t.Fatalf("segment starts with %#02x; want 0", data[offset])
	}

	d, err := NewDecoder(bytes.NewReader(data), p.DecoderProperties())
	if err != nil {
		t.Fatalf("NewDecoder error %s", err)
	}
	for i, want := range ops {
		if i == half {
			if err = d.Align(); err != nil {
				t.Fatalf("d.Align() error %s", err)
			}
		}
		op, err := d.ReadOp()
		if err != nil {
			t.Fatalf("#%d ReadOp error %s", i, err)
		}
		if op != want {
			t.Fatalf("#%d ReadOp returned %v; want %v", i, op, want)
		}
	}
	if _, err = d.ReadOp(); err != io.EOF {
		t.Fatalf("ReadOp at end returned %v; want %v", err, io.EOF)
	}
	if d.Pos() != int64(len(g.data)) {
		t.Fatalf("d.Pos() = %d; want %d", d.Pos(), len(g.data))
	}
}

func TestEncoderEOS(t *testing.T) {
	var logBuf bytes.Buffer
	debugOn(&logBuf)
	defer debugOff()
	g := newOpGenerator(4, MinDictSize)
	ops := g.ops(500)
	p := testProps(3, 0, 2, true)
	data := encodeOps(t, p, ops)
	if !strings.Contains(logBuf.String(), "end-of-stream marker") {
		t.Fatalf("no debug output for the marker: %q", logBuf.String())
	}
	// the marker terminates the stream independent of trailing data
	data = append(data, "trailing data"...)
	got := decodeOps(t, p, data, -1)
	if len(got) != len(ops) {
		t.Fatalf("decoded %d operations; want %d", len(got), len(ops))
	}

	// an empty stream with marker
	empty := encodeOps(t, p, nil)
	if got = decodeOps(t, p, empty, -1); len(got) != 0 {
		t.Fatalf("decoded %d operations from empty stream", len(got))
	}
	p.EOSMarker = false
	empty = encodeOps(t, p, nil)
	if len(empty) != 5 {
		t.Fatalf("empty stream has %d bytes; want 5", len(empty))
	}
	if got = decodeOps(t, p, empty, 0); len(got) != 0 {
		t.Fatalf("decoded %d operations from empty stream", len(got))
	}
	d, err := NewDecoder(bytes.NewReader(empty), p.DecoderProperties())
	if err != nil {
		t.Fatalf("NewDecoder error %s", err)
	}
	if _, err = d.ReadOp(); err != io.ErrUnexpectedEOF {
		t.Fatalf("ReadOp without marker and size returned %v; want %v",
			err, io.ErrUnexpectedEOF)
	}
}

func TestDecoderEndDetection(t *testing.T) {
	type testCase struct {
		zeros     int
		eos       bool
		knownSize bool
	}
	var tests []testCase
	for _, zeros := range []int{0, 100, 1000, 5000} {
		for _, eos := range []bool{false, true} {
			for _, knownSize := range []bool{false, true} {
				tests = append(tests,
					testCase{zeros, eos, knownSize})
			}
		}
	}
	for _, tc := range tests {
		data := append([]byte("hello"), make([]byte, tc.zeros)...)
		var buf bytes.Buffer
		p := testProps(3, 0, 2, tc.eos)
		e, err := NewEncoder(&buf, p)
		if err != nil {
			t.Fatalf("NewEncoder error %s", err)
		}
		for _, c := range data {
			if err = e.WriteLiteral(c); err != nil {
				t.Fatalf("WriteLiteral error %s", err)
			}
		}
		if err = e.Close(); err != nil {
			t.Fatalf("e.Close() error %s", err)
		}
		size := int64(-1)
		if tc.knownSize {
			size = int64(len(data))
		}
		r, err := NewReaderSize(&buf, p.DecoderProperties(), size)
		if err != nil {
			t.Fatalf("NewReaderSize error %s", err)
		}
		got, err := io.ReadAll(r)
		if !tc.eos && !tc.knownSize {
			if err != io.ErrUnexpectedEOF {
				t.Fatalf("%+v: ReadAll returned %d bytes and %v;"+
					" want %v", tc, len(got), err,
					io.ErrUnexpectedEOF)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%+v: ReadAll error %s", tc, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("%+v: decoded %d of %d bytes", tc, len(got),
				len(data))
		}
	}
}

func TestDecoderMarkerSizeMismatch(t *testing.T) {
	g := newOpGenerator(7, MinDictSize)
	ops := g.ops(300)
	p := testProps(3, 0, 2, true)
	data := encodeOps(t, p, ops)
	d, err := NewDecoderSize(bytes.NewReader(data), p.DecoderProperties(),
		int64(len(g.data))+1)
	if err != nil {
		t.Fatalf("NewDecoderSize error %s", err)
	}
	for {
		_, err = d.ReadOp()
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrUnexpectedEOS) {
		t.Fatalf("ReadOp returned %v; want %v", err, ErrUnexpectedEOS)
	}
}

func TestEncoderClosedSize(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, testProps(3, 0, 2, false))
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	g := newOpGenerator(8, MinDictSize)
	for _, op := range g.ops(2000) {
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("WriteOp error %s", err)
		}
	}
	want := e.ClosedSize()
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	if int64(buf.Len()) != want {
		t.Fatalf("stream has %d bytes; ClosedSize returned %d",
			buf.Len(), want)
	}
}

func TestEncoderErrors(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, testProps(3, 0, 2, false))
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	if err = e.WriteMatch(1, 2); err == nil {
		t.Fatalf("WriteMatch at position 0 succeeded")
	}
	for _, c := range []byte("abcd") {
		if err = e.WriteLiteral(c); err != nil {
			t.Fatalf("WriteLiteral error %s", err)
		}
	}
	tests := []struct{ dist, n uint32 }{
		{0, 2},
		{5, 2},
		{1, 274},
		{1, 0},
		{2, 1},
	}
	for _, tc := range tests {
		if err = e.WriteMatch(tc.dist, tc.n); err == nil {
			t.Fatalf("WriteMatch(%d, %d) succeeded", tc.dist, tc.n)
		}
		if p := e.MatchPrice(tc.dist, tc.n); p != 0 {
			t.Fatalf("MatchPrice(%d, %d) = %d; want 0", tc.dist,
				tc.n, p)
		}
	}
	// range errors don't stop the encoder
	if err = e.WriteMatch(4, 4); err != nil {
		t.Fatalf("WriteMatch(4, 4) error %s", err)
	}
	if err = e.WriteMatch(4, 1); err != nil {
		t.Fatalf("short rep WriteMatch(4, 1) error %s", err)
	}
	if e.Pos() != 9 {
		t.Fatalf("e.Pos() = %d; want 9", e.Pos())
	}
	for i := e.Pos(); i < MinDictSize+1; i++ {
		if err = e.WriteLiteral(byte(i)); err != nil {
			t.Fatalf("WriteLiteral error %s", err)
		}
	}
	if err = e.WriteMatch(MinDictSize+1, 2); err == nil {
		t.Fatalf("WriteMatch beyond dictionary succeeded")
	}
	if err = e.WriteMatch(MinDictSize, 2); err != nil {
		t.Fatalf("WriteMatch(%d, 2) error %s", MinDictSize, err)
	}
	if err = e.Close(); err != nil {
		t.Fatalf("e.Close() error %s", err)
	}
	if err = e.WriteLiteral('a'); err != ErrClosed {
		t.Fatalf("WriteLiteral after Close returned %v; want %v",
			err, ErrClosed)
	}
	if err = e.Close(); err != ErrClosed {
		t.Fatalf("second Close returned %v; want %v", err, ErrClosed)
	}
}

var errSink = errors.New("sink error")

type failWriter struct{}

func (failWriter) Write(p []byte) (n int, err error) { return 0, errSink }

func TestEncoderSinkError(t *testing.T) {
	e, err := NewEncoder(failWriter{}, testProps(3, 0, 2, false))
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		if err = e.WriteLiteral(byte(r.Intn(256))); err != nil {
			t.Fatalf("WriteLiteral error %s", err)
		}
	}
	if err = e.Flush(); err != errSink {
		t.Fatalf("Flush returned %v; want %v", err, errSink)
	}
	if err = e.WriteLiteral('a'); err != errSink {
		t.Fatalf("WriteLiteral returned %v; want %v", err, errSink)
	}
}

type flushBuffer struct {
	bytes.Buffer
	flushes int
}

func (b *flushBuffer) Flush() error {
	b.flushes++
	return nil
}

func TestEncoderFlush(t *testing.T) {
	var buf flushBuffer
	e, err := NewEncoder(&buf, testProps(3, 0, 2, false))
	if err != nil {
		t.Fatalf("NewEncoder error %s", err)
	}
	g := newOpGenerator(6, MinDictSize)
	for _, op := range g.ops(1000) {
		if err = e.WriteOp(op); err != nil {
			t.Fatalf("WriteOp error %s", err)
		}
	}
	if err = e.Flush(); err != nil {
		t.Fatalf("Flush error %s", err)
	}
	n := buf.Len()
	if int64(n) != e.Compressed() {
		t.Fatalf("%d bytes after Flush; want %d", n, e.Compressed())
	}
	if err = e.Flush(); err != nil {
		t.Fatalf("second Flush error %s", err)
	}
	if buf.Len() != n {
		t.Fatalf("second Flush wrote %d bytes", buf.Len()-n)
	}
	if buf.flushes != 2 {
		t.Fatalf("sink flushed %d times; want 2", buf.flushes)
	}
}
