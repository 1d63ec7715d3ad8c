// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package lzma implements the entropy coding of the LZMA algorithm.
//
// The Encoder turns literals and matches provided by a match finder into
// a raw LZMA stream and estimates the price of candidate operations for
// optimizing parsers. The Writer combines the Encoder with the sequencer
// of the github.com/ulikunitz/lz package and compresses plain byte
// streams. The Decoder and the Reader are the inverse.
//
// The package doesn't write any container format. Only the five bytes
// describing the DecoderProperties can be created with
// DecoderProperties.AppendBinary.
package lzma
