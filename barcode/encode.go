package barcode

// Encode turns text into a CODE128 symbol. Every character must be 7-bit
// ASCII; nothing is dropped or substituted.
func Encode(text string) (*Symbol, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	position := 0
	for _, r := range text {
		if r >= 128 {
			return nil, &UnsupportedCharacterError{Char: r, Position: position}
		}
		position++
	}

	codewords := planCodewords(text)
	check := Checksum(codewords)
	codewords = append(codewords, check, valueStop)

	return &Symbol{
		Symbology: Symbology,
		Text:      text,
		Codewords: codewords,
		Checksum:  check,
		Runs:      runsFor(codewords),
	}, nil
}

// planCodewords returns the start code followed by the data codewords
func planCodewords(text string) []int {
	var current codeSet
	if digitRun(text, 0) >= 2 {
		current = setC
	} else {
		current = pickAB(text, 0)
	}
	codewords := []int{current.startValue()}

	for i := 0; i < len(text); {
		digits := digitRun(text, i)

		if current == setC {
			if digits >= 2 {
				codewords = append(codewords, int(text[i]-'0')*10+int(text[i+1]-'0'))
				i += 2
				continue
			}
			current = pickAB(text, i)
			codewords = append(codewords, current.switchValue())
			continue
		}

		if digits >= 2 {
			if digits%2 == 1 {
				// odd run: the leading digit stays in the current set
				codewords = append(codewords, current.value(text[i]))
				i++
			}
			current = setC
			codewords = append(codewords, valueCodeC)
			continue
		}

		if !current.covers(text[i]) {
			current = pickAB(text, i)
			codewords = append(codewords, current.switchValue())
		}
		codewords = append(codewords, current.value(text[i]))
		i++
	}
	return codewords
}

// pickAB chooses between code sets A and B by the run each can encode from i
func pickAB(text string, i int) codeSet {
	if coveredRun(text, i, setA) > coveredRun(text, i, setB) {
		return setA
	}
	return setB
}

func coveredRun(text string, i int, set codeSet) int {
	n := 0
	for i+n < len(text) && set.covers(text[i+n]) {
		n++
	}
	return n
}

func digitRun(text string, i int) int {
	return coveredRun(text, i, setC)
}
