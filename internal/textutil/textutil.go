// Package textutil cleans extracted PDF text and parses user-facing
// page set expressions.
package textutil

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	softHyphen   = '\u00ad'
	nbsp         = '\u00a0'
	narrowNbsp   = '\u202f'
	zeroWidthSp  = '\u200b'
	objectRepl   = '\ufffc'
	lineSep      = '\u2028'
	paragraphSep = '\u2029'
)

// CleanText normalizes extracted text: NFC composition, soft hyphens
// and zero-width characters removed, exotic spaces folded to plain
// ones, runs of blanks collapsed.
func CleanText(s string) string {
	s = norm.NFC.String(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case softHyphen, zeroWidthSp, objectRepl:
			// dropped
		case nbsp, narrowNbsp:
			sb.WriteRune(' ')
		case lineSep, paragraphSep:
			sb.WriteRune('\n')
		default:
			sb.WriteRune(r)
		}
	}

	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// DenoiseSoftLinebreaks joins hard-wrapped lines inside a paragraph
// into continuous text. A blank line stays a paragraph break; a
// hyphenated word broken across lines is stitched back together.
func DenoiseSoftLinebreaks(s string) string {
	paragraphs := strings.Split(s, "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		lines := strings.Split(p, "\n")
		var sb strings.Builder
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if sb.Len() == 0 {
				sb.WriteString(line)
				continue
			}
			prev := sb.String()
			if strings.HasSuffix(prev, "-") && i > 0 && startsLower(line) {
				// Hard hyphenation: "transla-" + "tion".
				trimmed := strings.TrimSuffix(prev, "-")
				sb.Reset()
				sb.WriteString(trimmed)
				sb.WriteString(line)
			} else {
				sb.WriteString(" ")
				sb.WriteString(line)
			}
		}
		if sb.Len() > 0 {
			out = append(out, sb.String())
		}
	}
	return strings.Join(out, "\n\n")
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}

// ParsePageSet parses a 1-based page expression like "1,3-5,10" into a
// set. An empty expression yields an empty, non-nil set meaning "all
// pages". Page numbers must be positive and ranges ascending.
func ParsePageSet(expr string) (map[int]bool, error) {
	pages := make(map[int]bool)
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return pages, nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parsePageNumber(lo)
			if err != nil {
				return nil, err
			}
			end, err := parsePageNumber(hi)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("invalid page range %q: end before start", part)
			}
			for p := start; p <= end; p++ {
				pages[p] = true
			}
		} else {
			p, err := parsePageNumber(part)
			if err != nil {
				return nil, err
			}
			pages[p] = true
		}
	}
	return pages, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("page numbers are 1-based, got %d", n)
	}
	return n, nil
}
