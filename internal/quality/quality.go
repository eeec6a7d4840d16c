// Package quality scores generated training candidates with deterministic
// heuristics. Score is a pure function: no I/O, no randomness, identical
// output for identical input.
package quality

import (
	"strings"
	"unicode/utf8"
)

// Flags raised by Score.
const (
	FlagShortInstruction = "short_instruction"
	FlagShortResponse    = "short_response"
	FlagEmptyInstruction = "empty_instruction"
	FlagEmptyResponse    = "empty_response"
	FlagIdenticalContent = "identical_content"
)

const (
	minInstructionLen = 10
	minResponseLen    = 20
)

// Result holds the outcome of scoring one candidate.
type Result struct {
	Score float64
	Flags []string
}

// HasFlag reports whether the named flag was raised.
func (r Result) HasFlag(name string) bool {
	for _, f := range r.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// Score evaluates an instruction/response pair. The running score starts at
// 1.0 and each rule decrements it independently; empty content forces the
// score to zero regardless of other adjustments, though the flag set still
// accumulates. The final score is clamped to [0, 1]. inputText is accepted
// for signature completeness but carries no rules today.
func Score(instruction, idealResponse, inputText string) Result {
	_ = inputText

	var flags []string
	score := 1.0
	forceZero := false

	// Lengths count characters, not bytes, so multibyte text is measured
	// the same as ASCII.
	if utf8.RuneCountInString(instruction) < minInstructionLen {
		flags = append(flags, FlagShortInstruction)
		score -= 0.1
	}
	if utf8.RuneCountInString(idealResponse) < minResponseLen {
		flags = append(flags, FlagShortResponse)
		score -= 0.2
	}

	if strings.TrimSpace(instruction) == "" {
		flags = append(flags, FlagEmptyInstruction)
		forceZero = true
	}
	if strings.TrimSpace(idealResponse) == "" {
		flags = append(flags, FlagEmptyResponse)
		forceZero = true
	}

	if strings.EqualFold(idealResponse, instruction) {
		flags = append(flags, FlagIdenticalContent)
		score -= 0.3
	}

	if forceZero {
		score = 0.0
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return Result{Score: score, Flags: flags}
}
