package sentiment

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/russross/blackfriday/v2"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// PlainText renders markdown and drops the markup and links. Whitespace is
// collapsed within a line; each non-empty line stays on its own line.
func PlainText(input string) string {
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())

	text := string(rendered)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rendered))
	if err == nil {
		text = doc.Text()
	}

	var lines []string
	for _, line := range strings.Split(RemoveLinks(text), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
