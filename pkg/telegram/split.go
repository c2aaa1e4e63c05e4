package telegram

import "strings"

// tagToken is an open formatting element at a potential cut point.
type tagToken struct {
	open  string // e.g. `<b>` or `<a href="...">`
	close string // e.g. `</b>`
}

// SplitMessage splits HTML-formatted text into parts no longer than limit,
// preferring newline boundaries. A cut never lands inside a tag or inside
// an open element: elements spanning a cut are closed at the end of one
// part and reopened at the start of the next.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	var open []tagToken

	for len(text) > 0 {
		// Reopen elements carried over from the previous part.
		prefix := ""
		for _, t := range open {
			prefix += t.open
		}

		avail := limit - len(prefix)
		if avail-closingLen(open) <= 0 {
			// Pathological nesting; emit what we can without reopening.
			prefix = ""
			open = nil
			avail = limit
		}

		if len(text) <= avail {
			parts = append(parts, prefix+text)
			break
		}

		cut := findCut(text, avail, open)
		segment := text[:cut.pos]
		closing := ""
		for i := len(cut.open) - 1; i >= 0; i-- {
			closing += cut.open[i].close
		}

		parts = append(parts, strings.TrimRight(prefix+segment, "\n")+closing)
		open = cut.open
		text = strings.TrimLeft(text[cut.pos:], "\n")
	}

	return parts
}

// cutPoint is a safe split position with the elements open at it.
type cutPoint struct {
	pos  int
	open []tagToken
}

// findCut scans text and returns the best cut such that the segment plus
// the closing tags for everything open at it fit in avail bytes, preferring
// the last newline that is outside any tag.
func findCut(text string, avail int, initialOpen []tagToken) cutPoint {
	open := append([]tagToken{}, initialOpen...)

	best := cutPoint{}
	lastSafe := cutPoint{}

	i := 0
	for i < len(text) && i <= avail {
		if text[i] == '<' {
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				break
			}
			tag := text[i : i+end+1]
			open = applyTag(open, tag)
			i += end + 1
			continue
		}

		// A cut is valid here when the segment and the closings for the
		// elements still open both fit.
		if i+closingLen(open) <= avail {
			lastSafe = cutPoint{pos: i, open: append([]tagToken{}, open...)}
			if text[i] == '\n' {
				best = lastSafe
			}
		}
		i++
	}

	if best.pos > 0 {
		return best
	}
	if lastSafe.pos > 0 {
		return lastSafe
	}
	// No safe cut found at all; fall back to a raw boundary that still
	// leaves room for the carried-over closings.
	pos := avail - closingLen(initialOpen)
	if pos < 1 {
		pos = 1
	}
	if pos > len(text) {
		pos = len(text)
	}
	return cutPoint{pos: pos, open: append([]tagToken{}, initialOpen...)}
}

// applyTag updates the open-element stack for one tag.
func applyTag(open []tagToken, tag string) []tagToken {
	if strings.HasPrefix(tag, "</") {
		if len(open) > 0 {
			return open[:len(open)-1]
		}
		return open
	}

	name := tagName(tag)
	if name == "" {
		return open
	}
	return append(open, tagToken{open: tag, close: "</" + name + ">"})
}

// tagName extracts the element name from an opening tag.
func tagName(tag string) string {
	inner := strings.Trim(tag, "<>")
	if i := strings.IndexAny(inner, " \t"); i >= 0 {
		inner = inner[:i]
	}
	return inner
}

// closingLen is the byte length needed to close all open elements.
func closingLen(open []tagToken) int {
	n := 0
	for _, t := range open {
		n += len(t.close)
	}
	return n
}
