// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package tuning

import (
	"bytes"
	"crypto/sha256"
	"io"
	"testing"
	"testing/fstest"

	"github.com/ulikunitz/lzmaenc/lzma"
)

func TestFiles(t *testing.T) {
	corpus := fstest.MapFS{
		"a.txt":     {Data: []byte("foofoobar")},
		"dir/b.txt": {Data: []byte("barbarfoo!")},
	}
	files, err := Files(corpus)
	if err != nil {
		t.Fatalf("Files error %s", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files; want 2", len(files))
	}
	if files[1].Name != "dir/b.txt" {
		t.Fatalf("files[1].Name = %q; want %q", files[1].Name,
			"dir/b.txt")
	}
	if n := Size(files); n != 19 {
		t.Fatalf("Size(files) = %d; want 19", n)
	}
	n, err := Compress(files, lzma.EncoderProperties{DictSize: 1 << 16}, 2)
	if err != nil {
		t.Fatalf("Compress error %s", err)
	}
	if n <= 0 {
		t.Fatalf("Compress returned size %d", n)
	}
}

func TestSilesia(t *testing.T) {
	if testing.Short() {
		t.Skip("slow test")
	}
	configs := []struct {
		name string
		p    lzma.EncoderProperties
	}{
		{"default", lzma.EncoderProperties{EOSMarker: true}},
		{"small-dict", lzma.EncoderProperties{
			DictSize:   32768,
			Properties: lzma.Properties{LC: 0, LP: 2, PB: 2},
			EOSMarker:  true,
		}},
	}

	files := Silesia()

	for _, c := range configs {
		c := c
		for _, f := range files {
			f := f
			t.Run(c.name+":"+f.Name, func(t *testing.T) {
				t.Parallel()
				s := sha256.Sum256(f.Data)
				hsum := s[:]

				buf := new(bytes.Buffer)
				w, err := lzma.NewWriterProps(buf, c.p)
				if err != nil {
					t.Fatalf("lzma.NewWriterProps error %s",
						err)
				}
				_, err = io.Copy(w, bytes.NewReader(f.Data))
				if err != nil {
					t.Fatalf("%s: io.Copy compression error %s",
						f.Name, err)
				}
				if err = w.Close(); err != nil {
					t.Fatalf("%s: w.Close() error %s",
						f.Name, err)
				}

				h := sha256.New()
				r, err := lzma.NewReader(buf,
					w.Properties().DecoderProperties())
				if err != nil {
					t.Fatalf("%s: lzma.NewReader error %s",
						f.Name, err)
				}
				_, err = io.Copy(h, r)
				if err != nil {
					t.Fatalf("%s: io.Copy decompression error %s",
						f.Name, err)
				}
				gsum := h.Sum(nil)
				if !bytes.Equal(gsum, hsum) {
					t.Errorf("%s: got %x; want %x",
						f.Name, gsum, hsum)
				}
			})
		}
	}
}
