// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kr/pretty"
	"github.com/ulikunitz/lzmaenc/internal/xlog"
	"github.com/ulikunitz/lzmaenc/lzma"
)

type packer interface {
	outputPaths(path string) (outputPath, tmpPath string, err error)
	pack(w io.Writer, r io.Reader, size int64, opts *options,
	) (n int64, err error)
}

const lzmaSuffix = ".lzma"

type lzmaPacker struct{}

func (p lzmaPacker) outputPaths(path string) (out, tmp string, err error) {
	if path == "-" {
		return "-", "-", nil
	}
	if path == "" {
		err = errors.New("path is empty")
		return
	}
	if strings.HasSuffix(path, lzmaSuffix) {
		err = fmt.Errorf("path %s has suffix %s -- ignored",
			path, lzmaSuffix)
		return
	}
	out = path + lzmaSuffix
	tmp = out + ".pack"
	return
}

// pack writes the .lzma header followed by the raw LZMA stream. The size
// is negative if it is unknown. Without size the end-of-stream marker is
// always written; with the marker the size is stored as unknown.
func (p lzmaPacker) pack(w io.Writer, r io.Reader, size int64, opts *options,
) (n int64, err error) {
	if w == nil {
		panic("writer w is nil")
	}
	if r == nil {
		panic("reader r is nil")
	}
	props := opts.props
	props.SetDefaults()
	if err = props.Verify(); err != nil {
		return 0, err
	}
	if size < 0 {
		props.EOSMarker = true
	}
	h := lzma.Header{DecoderProperties: props.DecoderProperties(), Size: -1}
	if !props.EOSMarker {
		h.Size = size
	}
	bw := bufio.NewWriter(w)
	if _, err = bw.Write(h.AppendBinary(nil)); err != nil {
		return 0, err
	}
	lw, err := lzma.NewWriterProps(bw, props)
	if err != nil {
		return 0, err
	}
	n, err = io.Copy(lw, r)
	if err != nil {
		return n, err
	}
	if h.Size >= 0 && n != h.Size {
		return n, fmt.Errorf("file size changed from %d to %d bytes",
			h.Size, n)
	}
	if err = lw.Close(); err != nil {
		return n, err
	}
	xlog.Printf(opts.log, "%d bytes compressed to %d bytes", n,
		int64(lzma.HeaderLen)+lw.Compressed())
	err = bw.Flush()
	return n, err
}

type lzmaUnpacker struct{}

func (u lzmaUnpacker) outputPaths(path string) (out, tmp string, err error) {
	if path == "-" {
		return "-", "-", nil
	}
	if !strings.HasSuffix(path, lzmaSuffix) {
		err = fmt.Errorf("path %s has no suffix %s",
			path, lzmaSuffix)
		return
	}
	base := filepath.Base(path)
	if base == lzmaSuffix {
		err = fmt.Errorf(
			"path %s has only suffix %s as filename",
			path, lzmaSuffix)
		return
	}
	out = path[:len(path)-len(lzmaSuffix)]
	tmp = out + ".unpack"
	return
}

func (u lzmaUnpacker) pack(w io.Writer, r io.Reader, size int64,
	opts *options) (n int64, err error) {
	if w == nil {
		panic("writer w is nil")
	}
	if r == nil {
		panic("reader r is nil")
	}
	// pack actually unpacks
	br := bufio.NewReader(r)
	header := make([]byte, lzma.HeaderLen)
	if _, err = io.ReadFull(br, header); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	var h lzma.Header
	if err = h.UnmarshalBinary(header); err != nil {
		return 0, err
	}
	if opts.verbose {
		pretty.Fprintf(os.Stderr, "%# v\n", h)
	}
	lr, err := lzma.NewReaderSize(br, h.DecoderProperties, h.Size)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, lr)
}

func packFile(pck packer, path, tmpPath string, opts *options) (err error) {
	// open reader
	var r *os.File
	size := int64(-1)
	if path == "-" {
		r = os.Stdin
	} else {
		var fi os.FileInfo
		fi, err = os.Lstat(path)
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() && !opts.force {
			return fmt.Errorf("%s is not a regular file", path)
		}
		r, err = os.Open(path)
		if err != nil {
			return err
		}
		fi, err = r.Stat()
		if err != nil {
			r.Close()
			return err
		}
		if !fi.Mode().IsRegular() {
			r.Close()
			return fmt.Errorf("%s is not a regular file", path)
		}
		size = fi.Size()
		defer func() {
			if err != nil {
				r.Close()
			} else {
				err = r.Close()
			}
		}()
	}

	// open writer
	var w *os.File
	if tmpPath == "-" {
		w = os.Stdout
	} else {
		if opts.force {
			os.Remove(tmpPath)
		}
		w, err = os.OpenFile(tmpPath,
			os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				w.Close()
			} else {
				err = w.Close()
			}
		}()
		var fi os.FileInfo
		if fi, err = w.Stat(); err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", tmpPath)
		}
	}

	_, err = pck.pack(w, r, size, opts)
	return err
}

// userPathError represents a path error presentable to a user. In
// difference to os.PathError it removes the information of the
// operation returning the error.
type userPathError struct {
	Path string
	Err  error
}

// Error provides the error string for the path error.
func (e *userPathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// userError converts a path error to an error message without the
// operation that caused it.
func userError(err error) error {
	var pe *os.PathError
	if !errors.As(err, &pe) {
		return err
	}
	return &userPathError{Path: pe.Path, Err: pe.Err}
}

// processFile compresses or decompresses a single file. The returned error
// has already been converted for presentation.
func processFile(path string, opts *options, tmps *tmpFiles) error {
	var pck packer
	if opts.decompress {
		pck = lzmaUnpacker{}
	} else {
		pck = lzmaPacker{}
	}
	outputPath, tmpPath, err := pck.outputPaths(path)
	if err != nil {
		return userError(err)
	}
	if opts.stdout {
		outputPath, tmpPath = "-", "-"
	}
	if outputPath != "-" {
		_, err = os.Lstat(outputPath)
		if err == nil && !opts.force {
			return fmt.Errorf("file %s exists", outputPath)
		}
	}
	if tmpPath != "-" {
		tmps.add(tmpPath)
		defer tmps.remove(tmpPath)
	}

	if err = packFile(pck, path, tmpPath, opts); err != nil {
		return userError(err)
	}
	if tmpPath != "-" && outputPath != "-" {
		if err = os.Rename(tmpPath, outputPath); err != nil {
			return userError(err)
		}
	}
	if !opts.keep && !opts.stdout && path != "-" {
		if err = os.Remove(path); err != nil {
			return userError(err)
		}
	}
	return nil
}
