package barcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Decode reads a symbol's runs back into text, checking the start and stop
// patterns, the quiet zones and the check codeword.
func Decode(sym *Symbol) (string, error) {
	if sym == nil {
		return "", fmt.Errorf("%w: nil symbol", ErrMalformedSymbol)
	}
	codewords, err := readRuns(sym.Runs)
	if err != nil {
		return "", err
	}
	return DecodeCodewords(codewords)
}

// DecodeCodewords interprets a full codeword sequence (start, data, check,
// stop) and returns the encoded text
func DecodeCodewords(codewords []int) (string, error) {
	if len(codewords) < 4 {
		return "", fmt.Errorf("%w: %d codewords", ErrMalformedSymbol, len(codewords))
	}
	if codewords[len(codewords)-1] != valueStop {
		return "", fmt.Errorf("%w: missing stop code", ErrMalformedSymbol)
	}

	body := codewords[:len(codewords)-2]
	check := codewords[len(codewords)-2]
	if want := Checksum(body); want != check {
		return "", fmt.Errorf("%w: symbol carries %d, data gives %d", ErrChecksumMismatch, check, want)
	}

	var current codeSet
	switch body[0] {
	case valueStartA:
		current = setA
	case valueStartB:
		current = setB
	case valueStartC:
		current = setC
	default:
		return "", fmt.Errorf("%w: bad start code %d", ErrMalformedSymbol, body[0])
	}

	var out strings.Builder
	for pos, v := range body[1:] {
		switch {
		case current == setC && v < 100:
			if v < 10 {
				out.WriteByte('0')
			}
			out.WriteString(strconv.Itoa(v))
		case current == setA && v < 64:
			out.WriteByte(byte(v + 32))
		case current == setA && v < 96:
			out.WriteByte(byte(v - 64))
		case current == setB && v < 96:
			out.WriteByte(byte(v + 32))
		case v == valueCodeC && current != setC:
			current = setC
		case v == valueCodeB && current != setB:
			current = setB
		case v == valueCodeA && current != setA:
			current = setA
		default:
			return "", fmt.Errorf("%w: unsupported codeword %d in code set %s at %d", ErrMalformedSymbol, v, current, pos+1)
		}
	}
	return out.String(), nil
}

// readRuns converts runs into codewords, stripping the quiet zones
func readRuns(runs []Run) ([]int, error) {
	if len(runs) < 2 || runs[0].Bar || runs[len(runs)-1].Bar {
		return nil, fmt.Errorf("%w: missing quiet zone", ErrMalformedSymbol)
	}
	if runs[0].Width < QuietZone || runs[len(runs)-1].Width < QuietZone {
		return nil, fmt.Errorf("%w: quiet zone narrower than %d modules", ErrMalformedSymbol, QuietZone)
	}
	body := runs[1 : len(runs)-1]
	stopLen := len(patterns[valueStop])
	if len(body) < stopLen || (len(body)-stopLen)%6 != 0 {
		return nil, fmt.Errorf("%w: %d runs between quiet zones", ErrMalformedSymbol, len(body))
	}
	for i, r := range body {
		if r.Bar != (i%2 == 0) {
			return nil, fmt.Errorf("%w: runs do not alternate at %d", ErrMalformedSymbol, i)
		}
		if r.Width < 1 || r.Width > 4 {
			return nil, fmt.Errorf("%w: width %d at %d", ErrMalformedSymbol, r.Width, i)
		}
	}

	var codewords []int
	for i := 0; i < len(body); {
		size := 6
		if len(body)-i == stopLen {
			size = stopLen
		}
		var key strings.Builder
		for _, r := range body[i : i+size] {
			key.WriteByte(byte('0' + r.Width))
		}
		value, ok := patternValues[key.String()]
		if !ok {
			return nil, fmt.Errorf("%w: unknown pattern %s", ErrMalformedSymbol, key.String())
		}
		codewords = append(codewords, value)
		i += size
	}
	return codewords, nil
}
