package barcode

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternTable(t *testing.T) {
	require.Len(t, patterns, 107)
	seen := map[string]bool{}
	for value, pattern := range patterns {
		assert.False(t, seen[pattern], "duplicate pattern for %d", value)
		seen[pattern] = true

		total, bars := 0, 0
		for i, c := range pattern {
			w := int(c - '0')
			total += w
			if i%2 == 0 {
				bars += w
			}
		}
		want := 11
		if value == valueStop {
			want = 13
		}
		assert.Equal(t, want, total, "pattern %d", value)
		assert.Zero(t, bars%2, "bar modules of pattern %d must be even", value)
	}
}

func TestEncodeKnownVectors(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		codewords []int
	}{
		// start B, A, B, switch to C, "12", check, stop
		{"trailing digit pair", "AB12", []int{104, 33, 34, 99, 12, 35, 106}},
		{"all digit pairs", "1234", []int{105, 12, 34, 82, 106}},
		{"leading odd digit run", "123AB", []int{105, 12, 100, 19, 33, 34, 58, 106}},
		{"embedded odd digit run", "A123", []int{104, 33, 17, 99, 23, 45, 106}},
		{"control character", "\x01a", []int{103, 65, 100, 65, 48, 106}},
		{"single digit", "7", []int{104, 23, 24, 106}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sym, err := Encode(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.codewords, sym.Codewords)
			assert.Equal(t, tc.codewords[len(tc.codewords)-2], sym.Checksum)
			assert.Equal(t, Symbology, sym.Symbology)
			assert.Equal(t, tc.text, sym.Text)
		})
	}
}

func TestEncodeTrailingDigitPairLayout(t *testing.T) {
	sym, err := Encode("AB12")
	require.NoError(t, err)

	assert.Equal(t, Run{Bar: false, Width: QuietZone}, sym.Runs[0])
	assert.Equal(t, Run{Bar: false, Width: QuietZone}, sym.Runs[len(sym.Runs)-1])
	assert.Equal(t, []Run{{true, 2}, {false, 1}, {true, 1}, {false, 2}, {true, 1}, {false, 4}}, sym.Runs[1:7])
	assert.Equal(t, []Run{{true, 2}, {false, 3}, {true, 3}, {false, 1}, {true, 1}, {false, 1}, {true, 2}}, sym.Runs[len(sym.Runs)-8:len(sym.Runs)-1])

	assert.Equal(t, []int{33, 34, 99, 12}, sym.DataCodewords())
	assert.Equal(t, Checksum([]int{104, 33, 34, 99, 12}), sym.Checksum)
	// quiet zones + start, four data, check (11 each) + stop
	assert.Equal(t, 2*QuietZone+6*11+13, sym.Modules())
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Encode("abcé1")
	var uerr *UnsupportedCharacterError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, 'é', uerr.Char)
	assert.Equal(t, 3, uerr.Position)
}

func randomText(rng *rand.Rand, alphabet string) string {
	n := 1 + rng.Intn(80)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func TestRoundTrip(t *testing.T) {
	var ascii []byte
	for c := 0; c < 128; c++ {
		ascii = append(ascii, byte(c))
	}
	alphabets := map[string]string{
		"ascii":    string(ascii),
		"digits":   "0123456789",
		"mixed":    "0123456789ab-",
		"controls": "\x00\x01\x1fAZ09az",
	}

	rng := rand.New(rand.NewSource(128))
	for name, alphabet := range alphabets {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 300; i++ {
				text := randomText(rng, alphabet)
				sym, err := Encode(text)
				require.NoError(t, err)

				decoded, err := Decode(sym)
				require.NoError(t, err, "text %q", text)
				require.Equal(t, text, decoded)
				require.Equal(t, Checksum(sym.Codewords[:len(sym.Codewords)-2]), sym.Checksum)
			}
		})
	}
}

func TestRoundTripTrackingIdentifiers(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := uuid.New().String()
		sym, err := Encode(id)
		require.NoError(t, err)

		decoded, err := Decode(sym)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode("9b2f6c1e-3a4d-4f5e-8a7b-0c1d2e3f4a5b")
	require.NoError(t, err)
	b, err := Encode("9b2f6c1e-3a4d-4f5e-8a7b-0c1d2e3f4a5b")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeRejectsTampering(t *testing.T) {
	sym, err := Encode("AB12")
	require.NoError(t, err)

	t.Run("checksum", func(t *testing.T) {
		codewords := append([]int(nil), sym.Codewords...)
		codewords[2] = 35 // 'C' instead of 'B'
		_, err := Decode(&Symbol{Runs: runsFor(codewords)})
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("quiet zone", func(t *testing.T) {
		_, err := Decode(&Symbol{Runs: sym.Runs[1:]})
		assert.ErrorIs(t, err, ErrMalformedSymbol)
	})

	t.Run("unknown pattern", func(t *testing.T) {
		runs := append([]Run(nil), sym.Runs...)
		runs[8].Width = 4
		_, err := Decode(&Symbol{Runs: runs})
		assert.ErrorIs(t, err, ErrMalformedSymbol)
	})

	t.Run("truncated", func(t *testing.T) {
		runs := append([]Run(nil), sym.Runs[:len(sym.Runs)-4]...)
		runs = append(runs, Run{Bar: false, Width: QuietZone})
		_, err := Decode(&Symbol{Runs: runs})
		assert.ErrorIs(t, err, ErrMalformedSymbol)
	})
}

func TestDecodeCodewordsRejectsFunctionCodes(t *testing.T) {
	// FNC4 (100) in code set B is not produced by Encode
	body := []int{104, 33, 100}
	_, err := DecodeCodewords(append(body, Checksum(body), valueStop))
	assert.ErrorIs(t, err, ErrMalformedSymbol)
}
