package parser

import (
	"strings"
	"unicode/utf8"

	"papertimes/internal/core"
)

const (
	maxHeadlineRunes    = 60
	maxSubheadlineRunes = 120
)

// HeadlineSchema accepts both a bare {"main","sub"} object and one nested under "headline".
var HeadlineSchema = Schema{Fields: []Field{
	{Path: "main", Kind: KindString},
	{Path: "sub", Kind: KindString},
	{Path: "headline.main", Kind: KindString},
	{Path: "headline.sub", Kind: KindString},
}}

// ParseHeadline converts a headline response into a Headline. Missing parts are
// derived from content, the text the headline was written for.
func ParseHeadline(raw, content string) (core.Headline, Strategy) {
	res := Parse(raw, HeadlineSchema)

	var h core.Headline
	if res.Strategy != StrategyFallback {
		h.Main = or(res.String("main"), res.String("headline.main"))
		h.Sub = or(res.String("sub"), res.String("headline.sub"))
	} else {
		h.Main = firstLine(stripFences(raw))
	}

	if h.Main == "" {
		h.Main = firstLine(content)
	}
	if h.Main == "" {
		h.Main = UntitledHeadline
	}
	if h.Sub == "" {
		h.Sub = firstSentence(content)
	}

	h.Main = Truncate(h.Main, maxHeadlineRunes)
	h.Sub = Truncate(h.Sub, maxSubheadlineRunes)
	return h, res.Strategy
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#*-> ")
		line = strings.Trim(line, `"'*`)
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "。.!?！？\n"); i >= 0 {
		end := i
		if s[i] != '\n' {
			_, size := utf8.DecodeRuneInString(s[i:])
			end = i + size
		}
		return strings.TrimSpace(s[:end])
	}
	return s
}
