// Package normalise converts marked-up document formats to the plain text
// the chunker and lexical index work on. Offsets in stored chunks refer to
// this normalised text, so normalisation happens once at ingestion and the
// result is what the catalog stores.
package normalise

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for markdown stripping.
var (
	mdCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode   = regexp.MustCompile("`[^`]+`")
	mdImages       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLinks        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeadings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	mdRule         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// Pre-compiled regular expressions for HTML stripping.
var (
	htmlTitleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlScriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlHeadTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlOpenBlocks    = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlCloseBlocks   = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBreaks        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	htmlAllTags       = regexp.MustCompile(`<[^>]+>`)
	htmlMultiSpaces   = regexp.MustCompile(`[ \t]+`)
	htmlMultiNewlines = regexp.MustCompile(`\n{3,}`)
)

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// Markdown strips common markdown formatting, leaving plain text. This is
// a simplified converter that handles the constructs found in article
// markdown, not a full CommonMark implementation.
func Markdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImages.ReplaceAllString(content, "")
	content = mdLinks.ReplaceAllString(content, "$1")
	content = mdHeadings.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdListMarkers.ReplaceAllString(content, "")
	content = mdNumberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// MarkdownTitle extracts the first H1 heading, falling back to the file
// name with separators turned into spaces.
func MarkdownTitle(content, name string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return titleFromName(name)
}

// HTML strips tags and extracts readable text content.
func HTML(content string) string {
	content = htmlScriptTag.ReplaceAllString(content, "")
	content = htmlStyleTag.ReplaceAllString(content, "")
	content = htmlHeadTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Block boundaries become newlines so paragraphs survive the strip.
	content = htmlOpenBlocks.ReplaceAllString(content, "\n")
	content = htmlCloseBlocks.ReplaceAllString(content, "\n")
	content = htmlBreaks.ReplaceAllString(content, "\n")

	content = htmlAllTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = htmlMultiSpaces.ReplaceAllString(content, " ")
	content = htmlMultiNewlines.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// HTMLTitle extracts the <title> tag content, falling back to the file
// name with separators turned into spaces.
func HTMLTitle(content, name string) string {
	matches := htmlTitleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		title := strings.TrimSpace(html.UnescapeString(matches[1]))
		if title != "" {
			return title
		}
	}
	return titleFromName(name)
}

// titleFromName derives a readable title from a file name.
func titleFromName(name string) string {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
