package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	markdownLink = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
)

// markdownToText keeps the readable text of markdown or HTML fragments
// such as Reddit self posts and feed descriptions.
func markdownToText(input string) string {
	input = markdownLink.ReplaceAllString(input, "$1")
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := htmlTag.ReplaceAllString(string(rendered), " ")
	return strings.Join(strings.Fields(html.UnescapeString(plain)), " ")
}
