// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Command tune measures compression ratio and speed of encoder properties
// on the Silesia corpus and reports the fastest properties for every
// ratio slot.
package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/kr/pretty"
	"github.com/ulikunitz/lzmaenc/internal/tuning"
	"github.com/ulikunitz/lzmaenc/lzma"
)

type preset struct {
	present bool
	props   lzma.EncoderProperties
	result  testing.BenchmarkResult
}

// mbPerSec returns the Megabytes (1 000 000 bytes) per seconds that are
// processed.
func mbPerSec(r testing.BenchmarkResult) float64 {
	if v, ok := r.Extra["MB/s"]; ok {
		return v
	}
	if r.Bytes <= 0 || r.T <= 0 || r.N <= 0 {
		return 0
	}
	return (float64(r.Bytes) * float64(r.N) / 1e6) / r.T.Seconds()
}

func ratio(r testing.BenchmarkResult) float64 {
	if x, ok := r.Extra["c/u"]; ok {
		return x
	}
	return math.NaN()
}

// Returns the slot index the ratio qualifies for. If no slot can be found ok
// will be false.
func slot(slots []float64, ratio float64) (i int, ok bool) {
	for i, r := range slots {
		if ratio > r {
			return i - 1, i > 0
		}
	}
	return len(slots) - 1, true
}

func writerBenchmark(p lzma.EncoderProperties) func(b *testing.B) {
	return func(b *testing.B) {
		files := tuning.Silesia()
		size := tuning.Size(files)
		b.SetBytes(size)
		var (
			err            error
			compressedSize int64
		)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			compressedSize, err = tuning.Compress(files, p, 1)
			if err != nil {
				b.Fatalf("tuning.Compress error %s", err)
			}
		}
		b.StopTimer()
		r := float64(compressedSize) / float64(size)
		b.ReportMetric(r, "c/u")
	}
}

// worse reports whether a cannot compress better than b. Only the
// dictionary size is compared for equal literal and position contexts.
func worse(a, b *lzma.EncoderProperties) bool {
	return a.Properties == b.Properties && a.DictSize <= b.DictSize
}

func findPresets(slots []float64, props []lzma.EncoderProperties) {
	if len(slots) == 0 {
		log.Fatalf("no slots defined")
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i] > slots[j]
	})
	fmt.Printf("slots %.3f\n", slots)
	rand.Shuffle(len(props), func(i, j int) {
		props[i], props[j] = props[j], props[i]
	})

	presets := make([]preset, len(slots))
	disabled := make([]bool, len(props))

	i := 0
	n := len(props)
	for k := len(props) - 1; k >= 0; k-- {
		if disabled[k] {
			continue
		}
		p := props[k]
		n--

		i++
		result := testing.Benchmark(writerBenchmark(p))
		fmt.Printf("%d-%d %s\n", i, n, result)
		si, ok := slot(slots, ratio(result))
		if !ok {
			for j := 0; j < k; j++ {
				if !disabled[j] && worse(&props[j], &p) {
					disabled[j] = true
					n--
				}
			}
			continue
		}
		v := mbPerSec(result)
		q := presets[si]
		if q.present && v <= mbPerSec(q.result) {
			fmt.Printf("slot %d - not faster\n", si+1)
			continue
		}
		presets[si] = preset{
			present: true,
			props:   p,
			result:  result,
		}
		fmt.Printf("slot %d - update\n", si+1)
		pretty.Println(p)
	}

	fmt.Printf("\n\n### Result ###\n\n")

	for si, p := range presets {
		if si > 0 {
			fmt.Printf("\n")
		}
		if !p.present {
			fmt.Printf("slot %d - not present\n", si+1)
			continue
		}
		fmt.Printf("slot %d - \t%.3f c/u\t%.2f MB/s\n",
			si+1, ratio(p.result), mbPerSec(p.result))
		pretty.Println(p.props)
	}
}

func appendProps(x []lzma.EncoderProperties) (y []lzma.EncoderProperties) {
	y = x
	for dictExp := 15; dictExp <= 23; dictExp++ {
		for lc := 0; lc <= 4; lc++ {
			for lp := 0; lp <= 2; lp++ {
				for _, pb := range []int{0, 2} {
					p, err := lzma.NewEncoderProperties(
						1<<dictExp, 0, lc, lp, pb, false)
					if err != nil {
						log.Fatalf("properties error %s", err)
					}
					y = append(y, p)
				}
			}
		}
	}
	return y
}

func main() {
	testing.Init()
	props := appendProps(nil)

	slots := []float64{0.30, 0.29, 0.28, 0.27, 0.26,
		0.25, 0.24, 0.23, 0.22}
	findPresets(slots, props)
}
