// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package tuning supports the measurement of compression ratios and
// speeds for a corpus of files.
package tuning

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/ulikunitz/lzmaenc/lzma"
	"github.com/ulikunitz/zdata"
	"golang.org/x/sync/errgroup"
)

// File is a single file of a corpus.
type File struct {
	Name string
	Data []byte
}

// Files reads all regular files of the corpus.
func Files(corpus fs.FS) (files []File, err error) {
	err = fs.WalkDir(corpus, ".",
		func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(corpus, path)
			if err != nil {
				return err
			}
			files = append(files, File{Name: path, Data: data})
			return nil
		})
	return files, err
}

// Size returns the total size of all files.
func Size(files []File) int64 {
	n := int64(0)
	for _, f := range files {
		n += int64(len(f.Data))
	}
	return n
}

var (
	silesia     []File
	silesiaOnce sync.Once
)

// Silesia returns the files of the Silesia corpus. The files are loaded
// only once.
func Silesia() []File {
	silesiaOnce.Do(func() {
		var err error
		silesia, err = Files(zdata.Silesia)
		if err != nil {
			panic(fmt.Errorf("tuning: Silesia() error %w", err))
		}
	})
	return silesia
}

type countWriter struct {
	n int64
}

func (w *countWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	w.n += int64(n)
	return n, nil
}

// CompressFile compresses the data of a single file and returns the
// compressed size.
func CompressFile(f File, p lzma.EncoderProperties) (n int64, err error) {
	cw := &countWriter{}
	w, err := lzma.NewWriterProps(cw, p)
	if err != nil {
		return 0, err
	}
	if _, err = io.Copy(w, bytes.NewReader(f.Data)); err != nil {
		return cw.n, err
	}
	if err = w.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Compress compresses all files with the given properties and returns the
// sum of the compressed sizes. Up to jobs files are compressed in
// parallel; a value less than 1 means no limit.
func Compress(files []File, p lzma.EncoderProperties, jobs int,
) (compressedSize int64, err error) {
	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var total atomic.Int64
	for _, f := range files {
		f := f
		g.Go(func() error {
			n, err := CompressFile(f, p)
			total.Add(n)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			return nil
		})
	}
	err = g.Wait()
	return total.Load(), err
}
