// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package lzma

// number of supported states
const states = 12

type state1Probs struct {
	isRep   prob
	isRepG0 prob
	isRepG1 prob
	isRepG2 prob
}

func initS1Probs(p []state1Probs) {
	for i := range p {
		p[i] = state1Probs{probInit, probInit, probInit, probInit}
	}
}

type state2Probs struct {
	isMatch     prob
	isRepG0Long prob
}

func initS2Probs(p []state2Probs) {
	for i := range p {
		p[i] = state2Probs{probInit, probInit}
	}
}

// state holds all probabilities and the operation state shared by the
// encoder and the decoder.
type state struct {
	s1          [states]state1Probs
	s2          [states << maxPosBits]state2Probs
	litCodec    literalCodec
	lenCodec    lengthCodec
	repLenCodec lengthCodec
	distCodec   distCodec
	Properties
	rep        [4]uint32
	state      uint32
	posBitMask uint32
}

// init sets the properties and resets the state.
func (s *state) init(p Properties) {
	s.Properties = p
	s.reset()
}

// reset restores the initial probabilities. Probability arrays allocated
// before are reused.
func (s *state) reset() {
	p := s.Properties
	s.posBitMask = (1 << uint(p.PB)) - 1
	s.rep = [4]uint32{}
	s.state = 0
	initS1Probs(s.s1[:])
	initS2Probs(s.s2[:])
	s.litCodec.init(p.LC, p.LP)
	s.lenCodec.init()
	s.repLenCodec.init()
	s.distCodec.init()
}

// updateStateLiteral updates the state for a literal.
func (s *state) updateStateLiteral() {
	switch {
	case s.state < 4:
		s.state = 0
		return
	case s.state < 10:
		s.state -= 3
		return
	}
	s.state -= 6
}

// updateStateMatch updates the state for a match.
func (s *state) updateStateMatch() {
	if s.state < 7 {
		s.state = 7
	} else {
		s.state = 10
	}
}

// updateStateRep updates the state for a repetition.
func (s *state) updateStateRep() {
	if s.state < 7 {
		s.state = 8
	} else {
		s.state = 11
	}
}

// updateStateShortRep updates the state for a short repetition.
func (s *state) updateStateShortRep() {
	if s.state < 7 {
		s.state = 9
	} else {
		s.state = 11
	}
}

// states computes the states of the operation codec.
func (s *state) states(pos int64) (state1, state2, posState uint32) {
	state1 = s.state
	posState = uint32(pos) & s.posBitMask
	state2 = (s.state << maxPosBits) | posState
	return
}

// litState computes the literal state.
func (s *state) litState(prev byte, pos int64) uint32 {
	litState := ((uint32(pos) & ((1 << uint(s.LP)) - 1)) << uint(s.LC)) |
		(uint32(prev) >> (8 - uint(s.LC)))
	return litState
}
