package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText extracts readable text from an HTML email body for
// classification input. Script and style content is removed; block
// elements collapse to single spaces.
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script,style,head").Remove()
	text := doc.Text()

	return strings.Join(strings.Fields(text), " ")
}
