// Package textutil holds the pure text transforms used on the outbound path:
// rich-markup rewriting and size-limited chunking.
package textutil

import (
	"regexp"
	"strings"
)

var (
	linkRe        = regexp.MustCompile(`(?i)<a href="(.*?)">(.*?)</a>`)
	italicRe      = regexp.MustCompile(`(?i)<i>(.*?)</i>`)
	boldRe        = regexp.MustCompile(`(?i)<b>(.*?)</b>`)
	underlineRe   = regexp.MustCompile(`(?i)<u>(.*?)</u>`)
	inlineCodeRe  = regexp.MustCompile("(?i)<code>(.*?)</code>")
	codeBlockRe   = regexp.MustCompile("(?i)<pre>(.*?)</pre>")
	quoteExpandRe = regexp.MustCompile(`(?is)<blockquote expandable>(.*?)</blockquote>`)
	quoteRe       = regexp.MustCompile(`(?is)<blockquote>(.*?)</blockquote>`)
	emojiRe       = regexp.MustCompile(`(?i)<tg-emoji emoji-id="(.*?)">"(.*?)"</tg-emoji>`)
)

// HTMLToMarkdown rewrites Telegram-flavored HTML into the lightweight
// markdown dialect the sender expects. Text containing none of the source
// patterns passes through untouched, so the rewrite is idempotent on its
// own output.
func HTMLToMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = linkRe.ReplaceAllString(text, "[${2}](${1})")
	text = italicRe.ReplaceAllString(text, "_${1}_")
	text = boldRe.ReplaceAllString(text, "*${1}*")
	text = underlineRe.ReplaceAllString(text, "~${1}~")
	text = inlineCodeRe.ReplaceAllString(text, "`${1}`")
	text = codeBlockRe.ReplaceAllString(text, "```${1}```")
	text = quoteExpandRe.ReplaceAllStringFunc(text, func(m string) string {
		body := quoteExpandRe.FindStringSubmatch(m)[1]
		return "**> " + requoteLines(body)
	})
	text = quoteRe.ReplaceAllStringFunc(text, func(m string) string {
		body := quoteRe.FindStringSubmatch(m)[1]
		return "> " + requoteLines(body)
	})
	text = emojiRe.ReplaceAllString(text, "![${2}](tg://emoji?id=${1})")

	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	return text
}

// requoteLines normalizes line endings and re-prefixes every continuation
// line with the quote marker.
func requoteLines(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\n> ")
	return strings.TrimSpace(body)
}

// EscapeHTML protects angle brackets before text is embedded in HTML markup.
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

// SplitMessage splits text into chunks no longer than maxLength, breaking
// only on line boundaries. Lines pack greedily into the current chunk;
// a line that would overflow starts the next chunk. Chunks are never empty:
// a blank line landing on a chunk boundary (a trailing newline included) is
// dropped rather than emitted on its own. Joining the chunks with a newline
// otherwise reconstructs the input. A single line longer than maxLength is
// emitted as its own oversize chunk rather than broken.
func SplitMessage(content string, maxLength int) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	chunks := make([]string, 0, 1)
	current := lines[0]
	for _, line := range lines[1:] {
		if len(current)+len(line)+1 < maxLength {
			current += "\n" + line
		} else {
			if current != "" {
				chunks = append(chunks, current)
			}
			current = line
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
