package aging

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeCode canonicalizes a material/product code so the same item
// joins reliably across source tables that disagree on formatting:
// "9310288.0", "9,310,288" and 9310288 all collapse to "9310288".
//
// Rules: trim whitespace, strip thousands-separator commas; if the
// result parses as a number, round to the nearest integer and render
// as a plain integer string; otherwise pass the trimmed string through
// unchanged. Empty input yields "" (never a null-ish sentinel), so
// joins treat it as "no key".
//
// Every join key on every side of every merge must go through this
// function. One side skipping it silently drops matches.
func NormalizeCode(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxNumericCode {
		return s
	}
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// maxNumericCode bounds the integer rendering. ParseFloat also accepts
// "NaN", infinities and huge exponents; past this bound float64 cannot
// hold exact integers and the int64 conversion would produce a garbage
// key, so such input passes through as a plain string.
const maxNumericCode = 1e15
