// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

import (
	"bufio"
	"io"

	"github.com/ulikunitz/lz"
	"github.com/ulikunitz/lzmaenc/internal/xlog"
)

// Writer compresses the data written to it into a raw LZMA stream. It
// uses the sequencer of the lz package to find matches. The Writer must be
// initialized with Init before data can be written.
//
// The Writer is write-only: Read, Seek, Truncate and Size always return
// ErrUnsupported.
type Writer struct {
	z     io.Writer
	bw    *bufio.Writer
	props EncoderProperties
	seq   lz.Sequencer
	blk   lz.Block
	enc   opEncoder
	// number of sequencers created
	allocs int
	// initialized is true after a successful Init call
	initialized bool
	err         error
}

// NewWriter creates an uninitialized Writer for z.
func NewWriter(z io.Writer) *Writer {
	return &Writer{z: z}
}

// NewWriterProps creates a Writer and initializes it with the given
// properties.
func NewWriterProps(z io.Writer, p EncoderProperties) (w *Writer, err error) {
	w = NewWriter(z)
	if err = w.Init(p); err != nil {
		return nil, err
	}
	return w, nil
}

// seqConfig computes the configuration of the sequencer. The buffer of
// the sequencer has BufSize bytes and keeps the full dictionary after
// shrinking.
func seqConfig(p EncoderProperties) (lz.Configurator, error) {
	cfg := lz.DHSConfig{
		WindowSize: p.BufSize,
		ShrinkSize: p.DictSize,
	}
	cfg.ApplyDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init initializes the writer for a new stream. If the properties equal
// the properties of the previous stream the sequencer and all
// probability arrays are reused and only reset.
func (w *Writer) Init(p EncoderProperties) error {
	p.SetDefaults()
	if err := p.Verify(); err != nil {
		return err
	}
	if w.bw == nil {
		w.bw = bufio.NewWriter(w.z)
	} else {
		w.bw.Reset(w.z)
	}
	if w.seq != nil && p == w.props {
		xlog.Printf(debug, "reset writer %+v", p)
		if err := w.seq.Reset(nil); err != nil {
			return err
		}
	} else {
		xlog.Printf(debug, "create sequencer for %+v", p)
		cfg, err := seqConfig(p)
		if err != nil {
			return err
		}
		seq, err := cfg.NewSequencer()
		if err != nil {
			return err
		}
		w.seq = seq
		w.allocs++
	}
	w.props = p
	w.blk.Sequences = w.blk.Sequences[:0]
	w.blk.Literals = w.blk.Literals[:0]
	if err := w.enc.init(w.bw, p); err != nil {
		return err
	}
	w.initialized = true
	w.err = nil
	return nil
}

// Properties returns the properties the writer has been initialized with.
func (w *Writer) Properties() EncoderProperties { return w.props }

// Compressed returns the number of compressed bytes written to the
// buffered output.
func (w *Writer) Compressed() int64 { return w.enc.re.Len() }

// ClosedSize returns the size the stream would have if the data encoded
// so far were closed without end-of-stream marker. Data still buffered by
// the sequencer is not included.
func (w *Writer) ClosedSize() int64 {
	return w.enc.re.Len() + w.enc.re.Pending()
}

// writeMatch writes the match splitting it if it is longer than
// maxMatchLen. The argument dist equals offset - 1.
func (w *Writer) writeMatch(dist, m uint32) error {
	for m > 0 {
		var u uint32
		if m <= maxMatchLen {
			u = m
		} else if m >= maxMatchLen+minMatchLen {
			u = maxMatchLen
		} else {
			u = m - minMatchLen
		}
		if err := w.enc.writeMatch(dist, u); err != nil {
			return err
		}
		m -= u
	}
	return nil
}

// writeFarMatch writes a match with an offset beyond the dictionary as
// literals. The bytes are taken from the window of the sequencer.
func (w *Writer) writeFarMatch(m uint32) error {
	window := w.seq.WindowPtr()
	for ; m > 0; m-- {
		c, err := window.ReadByteAt(w.enc.pos())
		if err != nil {
			return err
		}
		if err = w.enc.writeLiteral(c); err != nil {
			return err
		}
	}
	return nil
}

// writeBlock encodes all sequences and literals of the block.
func (w *Writer) writeBlock() error {
	var err error
	litIndex := 0
	for _, s := range w.blk.Sequences {
		i := litIndex
		litIndex += int(s.LitLen)
		for _, c := range w.blk.Literals[i:litIndex] {
			if err = w.enc.writeLiteral(c); err != nil {
				return err
			}
		}
		if int64(s.Offset) > w.enc.dictSize {
			err = w.writeFarMatch(s.MatchLen)
		} else {
			err = w.writeMatch(s.Offset-1, s.MatchLen)
		}
		if err != nil {
			return err
		}
	}
	for _, c := range w.blk.Literals[litIndex:] {
		if err = w.enc.writeLiteral(c); err != nil {
			return err
		}
	}
	w.blk.Sequences = w.blk.Sequences[:0]
	w.blk.Literals = w.blk.Literals[:0]
	return nil
}

// encode encodes all data buffered in the window.
func (w *Writer) encode() error {
	for {
		if w.seq.WindowPtr().Buffered() == 0 {
			return nil
		}
		_, err := w.seq.Sequence(&w.blk, 0)
		if err != nil {
			if err == lz.ErrEmptyBuffer {
				return nil
			}
			return err
		}
		if err = w.writeBlock(); err != nil {
			return err
		}
	}
}

// check returns the error that prevents further writes.
func (w *Writer) check() error {
	if !w.initialized {
		return ErrNotInitialized
	}
	return w.err
}

// Write compresses the data. Every time the working buffer is full the
// buffered data is encoded and the window is shrunk to the dictionary.
func (w *Writer) Write(p []byte) (n int, err error) {
	if err = w.check(); err != nil {
		return 0, err
	}
	window := w.seq.WindowPtr()
	for {
		var k int
		k, err = window.Write(p[n:])
		n += k
		if err == nil {
			return n, nil
		}
		if err != lz.ErrFullBuffer {
			w.err = err
			return n, err
		}
		if err = w.encode(); err != nil {
			w.err = err
			return n, err
		}
		w.seq.Shrink()
	}
}

// flushSink writes the buffered output and flushes z if it supports it.
func (w *Writer) flushSink() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if f, ok := w.z.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Flush encodes all buffered input and flushes the output. The range
// encoder keeps up to five bytes that are only written by FlushAndAlign
// or Close.
func (w *Writer) Flush() error {
	if err := w.check(); err != nil {
		return err
	}
	if err := w.encode(); err != nil {
		w.err = err
		return err
	}
	if err := w.flushSink(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// FlushAndAlign flushes like Flush and writes all bytes of the current
// range-coded segment. Encoding continues with a new segment that starts
// at a known byte offset; probabilities and dictionary are kept. A decoder
// must call Decoder.Align at that offset.
func (w *Writer) FlushAndAlign() error {
	if err := w.check(); err != nil {
		return err
	}
	if err := w.encode(); err != nil {
		w.err = err
		return err
	}
	if err := w.enc.re.Align(); err != nil {
		w.err = err
		return err
	}
	if err := w.flushSink(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Close encodes the remaining input, writes the end-of-stream marker if
// required and terminates the stream. The writer can be initialized again
// for a new stream.
func (w *Writer) Close() error {
	if err := w.check(); err != nil {
		return err
	}
	var err error
	if err = w.encode(); err != nil {
		w.err = err
		return err
	}
	if w.props.EOSMarker {
		if err = w.enc.writeEOS(); err != nil {
			w.err = err
			return err
		}
	}
	if err = w.enc.re.Close(); err != nil {
		w.err = err
		return err
	}
	if err = w.flushSink(); err != nil {
		w.err = err
		return err
	}
	w.err = ErrClosed
	return nil
}

// Read is not supported.
func (w *Writer) Read(p []byte) (n int, err error) { return 0, ErrUnsupported }

// Seek is not supported.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrUnsupported
}

// Truncate is not supported.
func (w *Writer) Truncate(size int64) error { return ErrUnsupported }

// Size is not supported.
func (w *Writer) Size() (int64, error) { return 0, ErrUnsupported }
