// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Command lzmaenc compresses and decompresses files using raw LZMA streams
// in the classic .lzma file format.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kr/pretty"
	"github.com/ogier/pflag"
	"github.com/ulikunitz/lzmaenc/internal/xlog"
	"github.com/ulikunitz/lzmaenc/lzma"
	"golang.org/x/sync/errgroup"
)

const usageStr = `Usage: lzmaenc [OPTION]... [FILE]...
Compress or uncompress FILEs as raw LZMA streams with properties header (by
default, compress FILES in place).

  -c, --stdout      write to standard output and don't delete input files
  -d, --decompress  force decompression
  -e, --eos         write the end-of-stream marker (default true); the
                    marker is always written if the input size is unknown
  -f, --force       force overwrite of output file and compress links
  -h, --help        give this help
  -j, --jobs N      number of files processed in parallel
  -k, --keep        keep (don't delete) input files
  -q, --quiet       suppress all warnings
  -v, --verbose     verbose mode
      --dict SIZE   dictionary size in bytes (default 8 MiB)
      --lc N        literal context bits (default 3)
      --lp N        literal position bits (default 0)
      --pb N        position bits (default 2)

With no file, or when FILE is -, read standard input.
`

func usage(w io.Writer) {
	fmt.Fprint(w, usageStr)
}

// options collects the flags relevant for processing a single file.
type options struct {
	stdout     bool
	decompress bool
	force      bool
	keep       bool
	verbose    bool
	props      lzma.EncoderProperties
	// logger for the file processed; nil if not verbose
	log xlog.Logger
}

func main() {
	// setup logger
	cmdName := filepath.Base(os.Args[0])
	log.SetPrefix(fmt.Sprintf("%s: ", cmdName))
	log.SetFlags(0)

	// initialize flags
	pflag.CommandLine = pflag.NewFlagSet(cmdName, pflag.ExitOnError)
	pflag.SetInterspersed(true)
	pflag.Usage = func() { usage(os.Stderr); os.Exit(1) }
	var (
		help       = pflag.BoolP("help", "h", false, "")
		stdout     = pflag.BoolP("stdout", "c", false, "")
		decompress = pflag.BoolP("decompress", "d", false, "")
		eos        = pflag.BoolP("eos", "e", true, "")
		force      = pflag.BoolP("force", "f", false, "")
		jobs       = pflag.IntP("jobs", "j", runtime.NumCPU(), "")
		keep       = pflag.BoolP("keep", "k", false, "")
		quiet      = pflag.BoolP("quiet", "q", false, "")
		verbose    = pflag.BoolP("verbose", "v", false, "")
		dictSize   = pflag.Int("dict", 8<<20, "")
		lc         = pflag.Int("lc", 3, "")
		lp         = pflag.Int("lp", 0, "")
		pb         = pflag.Int("pb", 2, "")
	)
	pflag.Parse()

	if *help {
		usage(os.Stdout)
		os.Exit(0)
	}

	opts := &options{
		stdout:     *stdout,
		decompress: *decompress,
		force:      *force,
		keep:       *keep,
		verbose:    *verbose,
	}
	if !opts.decompress {
		var err error
		opts.props, err = lzma.NewEncoderProperties(*dictSize, 0,
			*lc, *lp, *pb, *eos)
		if err != nil {
			log.Fatal(err)
		}
		if opts.verbose {
			p := opts.props
			p.SetDefaults()
			pretty.Fprintf(os.Stderr, "%# v\n", p)
		}
	}

	args := pflag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}
	n := *jobs
	for _, path := range args {
		if path == "-" || opts.stdout {
			// output streams must not be interleaved
			n = 1
			break
		}
	}

	tmps := newTmpFiles()
	quit := signalHandler(tmps)

	var logger xlog.Logger
	if opts.verbose {
		logger = log.Default()
	}

	var g errgroup.Group
	if n > 0 {
		g.SetLimit(n)
	}
	failed := make([]bool, len(args))
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			l := xlog.Prefix(logger, path+": ")
			xlog.Println(l, "processing")
			o := *opts
			o.log = l
			if err := processFile(path, &o, tmps); err != nil {
				failed[i] = true
				if !*quiet {
					log.Print(err)
				}
				return nil
			}
			xlog.Println(l, "done")
			return nil
		})
	}
	g.Wait()
	close(quit)
	for _, f := range failed {
		if f {
			os.Exit(1)
		}
	}
}
