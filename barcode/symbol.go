package barcode

import (
	"errors"
	"fmt"
)

// Symbology is the identifier reported by every Symbol
const Symbology = "CODE128"

// QuietZone is the blank margin, in modules, on each side of the symbol
const QuietZone = 10

var (
	ErrEmptyInput       = errors.New("barcode input is empty")
	ErrMalformedSymbol  = errors.New("malformed barcode symbol")
	ErrChecksumMismatch = errors.New("barcode checksum mismatch")
)

// UnsupportedCharacterError reports a character CODE128 cannot carry
type UnsupportedCharacterError struct {
	Char     rune
	Position int
}

func (e *UnsupportedCharacterError) Error() string {
	return fmt.Sprintf("unsupported character %q at position %d", e.Char, e.Position)
}

// Run is a single bar or space measured in modules
type Run struct {
	Bar   bool `json:"bar"`
	Width int  `json:"width"`
}

// Symbol describes an encoded barcode
type Symbol struct {
	Symbology string `json:"symbology"`
	Text      string `json:"text"`
	// Codewords holds the start code, data, check codeword and stop code
	Codewords []int `json:"codewords"`
	Checksum  int   `json:"checksum"`
	Runs      []Run `json:"runs"`
}

// Modules returns the total symbol width in modules, quiet zones included
func (s *Symbol) Modules() int {
	total := 0
	for _, r := range s.Runs {
		total += r.Width
	}
	return total
}

// DataCodewords returns the codewords between the start code and the check
// codeword, code set switches included
func (s *Symbol) DataCodewords() []int {
	if len(s.Codewords) < 3 {
		return nil
	}
	return s.Codewords[1 : len(s.Codewords)-2]
}

// Checksum computes the CODE128 check value over a start code followed by data
// codewords: the start value plus each data value weighted by its position,
// modulo 103.
func Checksum(codewords []int) int {
	if len(codewords) == 0 {
		return 0
	}
	sum := codewords[0]
	for i := 1; i < len(codewords); i++ {
		sum += codewords[i] * i
	}
	return sum % 103
}

// runsFor lays out the bar/space runs of a full codeword sequence
func runsFor(codewords []int) []Run {
	runs := make([]Run, 0, len(codewords)*6+3)
	runs = append(runs, Run{Bar: false, Width: QuietZone})
	for _, cw := range codewords {
		for i, w := range patterns[cw] {
			runs = append(runs, Run{Bar: i%2 == 0, Width: int(w - '0')})
		}
	}
	return append(runs, Run{Bar: false, Width: QuietZone})
}
