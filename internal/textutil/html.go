package textutil

import (
	"regexp"
	"strings"
)

var (
	styleBlockPattern  = regexp.MustCompile(`(?is)<style.*?</style>`)
	scriptBlockPattern = regexp.MustCompile(`(?is)<script.*?</script>`)
	brPattern          = regexp.MustCompile(`(?i)<br\s*/?>`)
	closePPattern      = regexp.MustCompile(`(?i)</p>`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	nbspPattern        = regexp.MustCompile(`(?i)&nbsp;`)
	ltPattern          = regexp.MustCompile(`(?i)&lt;`)
	gtPattern          = regexp.MustCompile(`(?i)&gt;`)
	ampPattern         = regexp.MustCompile(`(?i)&amp;`)
	multiNewlines      = regexp.MustCompile(`\n{3,}`)
	multiSpaces        = regexp.MustCompile(`[ \t]{2,}`)
)

// NormalizeHTML converts an HTML email body into plain text suitable for a
// chat message, keeping paragraph and line-break structure.
//
// Only the four entities &nbsp; &lt; &gt; &amp; are unescaped, in that order,
// so a literal &amp; in the source decodes to "&" and is never re-expanded.
// Unknown entities pass through untouched. Plain-text input only goes through
// the whitespace normalization steps.
func NormalizeHTML(s string) string {
	s = styleBlockPattern.ReplaceAllString(s, " ")
	s = scriptBlockPattern.ReplaceAllString(s, " ")
	s = brPattern.ReplaceAllString(s, "\n")
	s = closePPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, " ")
	s = nbspPattern.ReplaceAllString(s, " ")
	s = ltPattern.ReplaceAllString(s, "<")
	s = gtPattern.ReplaceAllString(s, ">")
	s = ampPattern.ReplaceAllString(s, "&")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	s = multiSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
