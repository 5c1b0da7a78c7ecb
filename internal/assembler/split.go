package assembler

import (
	"strings"
	"unicode/utf8"
)

// Platform message size limits. A rendered body never exceeds HardLimit;
// splits prefer the last newline at or past SoftLimit.
const (
	HardLimit = 2000
	SoftLimit = 1800

	// flushFloor bounds how far back a streaming flush may break at a
	// newline below SoftLimit; same window width Split uses below
	// HardLimit.
	flushFloor = SoftLimit - (HardLimit - SoftLimit)
)

// Split cuts text into ordered chunks of at most HardLimit bytes each,
// breaking at the last newline between SoftLimit and HardLimit when one
// exists. The chunks concatenate back to the original text.
func Split(text string) []string {
	var chunks []string
	for len(text) > 0 {
		if len(text) <= HardLimit {
			chunks = append(chunks, text)
			break
		}
		cut := splitPoint(text, SoftLimit, HardLimit)
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

// splitPoint finds where to cut text known to exceed hard: the last
// newline in [soft, hard), else a hard cut backed off to a rune
// boundary.
func splitPoint(text string, soft, hard int) int {
	if i := strings.LastIndexByte(text[:hard], '\n'); i >= soft {
		return i
	}
	cut := hard
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}
