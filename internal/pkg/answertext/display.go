package answertext

import (
	"regexp"
	"strings"
)

var (
	sourcesFooterRe = regexp.MustCompile(`(?i)\n+Sources:\s[\s\S]*$`)

	// [1], [1, 2, 3], [1-3], [1–3] with an optional leading separator.
	citationRe         = regexp.MustCompile(`\s*[,;:–-]?\s*\[\s*\d+(?:\s*[-–]\s*\d+|\s*(?:,\s*\d+)+)?\s*\]`)
	commaBeforePunctRe = regexp.MustCompile(`,\s*([.!?;:])`)
	trailingCommaRe    = regexp.MustCompile(`(?m),[ \t]*$`)
	emptyParensRe      = regexp.MustCompile(`\(\s*\)`)
	spaceBeforePunctRe = regexp.MustCompile(`\s+([,.!?;:])`)
	repeatedSpaceRe    = regexp.MustCompile(`\s{2,}`)
	markdownLinkRe     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	htmlEscaper        = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")
)

// StripSourcesFooter removes the trailing "Sources: ..." block appended by the agent.
func StripSourcesFooter(s string) string {
	return sourcesFooterRe.ReplaceAllString(s, "")
}

// StripCitations removes numeric bracket citations and tidies the punctuation
// and whitespace the removal leaves behind.
func StripCitations(s string) string {
	out := citationRe.ReplaceAllString(s, "")
	out = commaBeforePunctRe.ReplaceAllString(out, "$1")
	out = trailingCommaRe.ReplaceAllString(out, "")
	out = emptyParensRe.ReplaceAllString(out, "")
	out = spaceBeforePunctRe.ReplaceAllString(out, "$1")
	out = repeatedSpaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Clean strips the footer and the inline citations of an agent reply.
func Clean(reply string) string {
	return StripCitations(StripSourcesFooter(reply))
}

// EscapeHTML escapes the five HTML-significant characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// LinksToHTML escapes s and then turns markdown [label](url) spans into
// anchors. Escaping runs first so the inserted markup is the only markup.
func LinksToHTML(s string) string {
	return markdownLinkRe.ReplaceAllString(EscapeHTML(s),
		`<a href="${2}" target="_blank" rel="noopener noreferrer">${1}</a>`)
}

// LinksToText rewrites markdown links as "label (url)" for plain-text output.
func LinksToText(s string) string {
	return markdownLinkRe.ReplaceAllString(s, "${1} (${2})")
}

// DisplayHTML is the full display transform for an assistant reply.
func DisplayHTML(reply string) string {
	return LinksToHTML(Clean(reply))
}
