package normalizer

import (
	"math"
	"strconv"
	"strings"
)

var numberNoise = strings.NewReplacer(
	" ", "",
	" ", "",
	"\t", "",
	"₺", "",
	"TL", "",
	"tl", "",
	"TRY", "",
)

// ParseNumber converts a spreadsheet cell to a float. It accepts plain
// numbers, Turkish "1.234,56", English "1,234.56" and accounting style
// "(12,5)". Anything unparsable, NaN or infinite becomes 0.
func ParseNumber(raw string, decimalComma bool) float64 {
	v := numberNoise.Replace(strings.TrimSpace(raw))
	if v == "" || v == "-" {
		return 0
	}

	neg := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		neg = true
		v = strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")
	}

	lastDot := strings.LastIndex(v, ".")
	lastComma := strings.LastIndex(v, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case lastComma >= 0:
		if decimalComma && strings.Count(v, ",") == 1 {
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case strings.Count(v, ".") > 1:
		v = strings.ReplaceAll(v, ".", "")
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if neg && f != 0 {
		f = -f
	}
	return f
}
