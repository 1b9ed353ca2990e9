package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns a copy of items with ids trimmed and captions trimmed and
// converted to NFC, so that equal-looking captions measure identically.
func Normalize(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.ID = strings.TrimSpace(it.ID)
		it.Caption = norm.NFC.String(strings.TrimSpace(it.Caption))
		it.ImageURL = strings.TrimSpace(it.ImageURL)
		out[i] = it
	}
	return out
}

// MaxRepeat is the largest repeat count Repeat honours.
const MaxRepeat = 1000

// Repeat returns items followed by n-1 further copies, used to pad a short
// catalog into a long scrolling wall. Copies get unique ids of the form
// "<id>#<k>" with k starting at 2. n < 1 is treated as 1 and n is capped at
// MaxRepeat.
func Repeat(items []Item, n int) []Item {
	n = min(max(n, 1), MaxRepeat)
	if len(items) == 0 {
		return []Item{}
	}
	out := make([]Item, 0, len(items)*n)
	out = append(out, items...)
	for k := 2; k <= n; k++ {
		suffix := "#" + strconv.Itoa(k)
		for _, it := range items {
			it.ID += suffix
			out = append(out, it)
		}
	}
	return out
}
