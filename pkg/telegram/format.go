// Package telegram sends notifications through the Telegram Bot API.
// Outgoing text arrives as markdown from the LLM and internal templates;
// it is converted to the HTML subset Telegram supports and split into
// multiple messages when it exceeds the platform limit.
package telegram

import (
	"regexp"
	"strings"
)

// MaxMessageLength is Telegram's hard per-message limit.
const MaxMessageLength = 4096

var (
	codePattern   = regexp.MustCompile("`([^`\n]+)`")
	boldPattern   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	starPattern   = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicPattern = regexp.MustCompile(`_([^_\n]+)_`)
	linkPattern   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

// FormatHTML converts the markdown subset used in notifications (bold,
// italic, inline code, links) into Telegram HTML. Everything else is
// escaped literally.
func FormatHTML(markdown string) string {
	text := escapeHTML(markdown)

	text = codePattern.ReplaceAllString(text, "<code>$1</code>")
	text = boldPattern.ReplaceAllString(text, "<b>$1</b>")
	text = starPattern.ReplaceAllString(text, "<b>$1</b>")
	text = italicPattern.ReplaceAllString(text, "<i>$1</i>")
	text = linkPattern.ReplaceAllString(text, `<a href="$2">$1</a>`)

	return text
}

// escapeHTML escapes the characters Telegram requires escaped in HTML
// parse mode.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
