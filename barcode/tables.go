package barcode

// patterns holds the bar/space module widths of every CODE128 symbol value,
// bar first. Values 103-105 are the start codes and 106 is the stop pattern.
var patterns = [...]string{
	"212222", "222122", "222221", "121223", "121322", "131222", "122213", "122312", "132212", "221213",
	"221312", "231212", "112232", "122132", "122231", "113222", "123122", "123221", "223211", "221132",
	"221231", "213212", "223112", "312131", "311222", "321122", "321221", "312212", "322112", "322211",
	"212123", "212321", "232121", "111323", "131123", "131321", "112313", "132113", "132311", "211313",
	"231113", "231311", "112133", "112331", "132131", "113123", "113321", "133121", "313121", "211331",
	"231131", "213113", "213311", "213131", "311123", "311321", "331121", "312113", "312311", "332111",
	"314111", "221411", "431111", "111224", "111422", "121124", "121421", "141122", "141221", "112214",
	"112412", "122114", "122411", "142112", "142211", "241211", "221114", "413111", "241112", "134111",
	"111242", "121142", "121241", "114212", "124112", "124211", "411212", "421112", "421211", "212141",
	"214121", "412121", "111143", "111341", "131141", "114113", "114311", "411113", "411311", "113141",
	"114131", "311141", "411131", "211412", "211214", "211232", "2331112",
}

const (
	valueCodeC  = 99
	valueCodeB  = 100 // in code sets A and C
	valueCodeA  = 101 // in code sets B and C
	valueStartA = 103
	valueStartB = 104
	valueStartC = 105
	valueStop   = 106
)

// patternValues is the reverse lookup used by Decode
var patternValues = func() map[string]int {
	m := make(map[string]int, len(patterns))
	for value, pattern := range patterns {
		m[pattern] = value
	}
	return m
}()

type codeSet int

const (
	setA codeSet = iota
	setB
	setC
)

func (s codeSet) String() string {
	return [...]string{"A", "B", "C"}[s]
}

func (s codeSet) startValue() int {
	return [...]int{valueStartA, valueStartB, valueStartC}[s]
}

// switchValue is the codeword that shifts into s from any other set
func (s codeSet) switchValue() int {
	return [...]int{valueCodeA, valueCodeB, valueCodeC}[s]
}

func (s codeSet) covers(c byte) bool {
	switch s {
	case setA:
		return c < 96
	case setB:
		return c >= 32 && c < 128
	default:
		return c >= '0' && c <= '9'
	}
}

// value maps a single character to its codeword in set A or B
func (s codeSet) value(c byte) int {
	if s == setA && c < 32 {
		return int(c) + 64
	}
	return int(c) - 32
}
