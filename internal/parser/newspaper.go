package parser

import (
	"strings"

	"papertimes/internal/core"
)

// UntitledHeadline is used when neither the response nor the main document supply a title.
const UntitledHeadline = "Untitled"

// NewspaperSchema is the set of fields requested from the generation prompt.
var NewspaperSchema = Schema{Fields: []Field{
	{Path: "headline.main", Kind: KindString},
	{Path: "headline.sub", Kind: KindString},
	{Path: "lead", Kind: KindString},
	{Path: "body", Kind: KindString},
	{Path: "conclusion", Kind: KindString},
	{Path: "sideInfo.keywords", Kind: KindList},
	{Path: "sideInfo.futureImplications", Kind: KindString},
}}

// Source is one analyzed document feeding a newspaper. The first Source is the main paper.
type Source struct {
	Title    string
	Analysis core.Analysis
}

// ParseNewspaper converts a generation response into fully populated content.
// Fields the response omits are filled from the source analyses.
func ParseNewspaper(raw string, sources []Source) (core.NewspaperContent, Strategy) {
	fb := FallbackNewspaper(sources)

	res := Parse(raw, NewspaperSchema)
	if res.Strategy == StrategyFallback {
		return fb, StrategyFallback
	}

	c := core.NewspaperContent{
		Headline: core.Headline{
			Main: or(res.String("headline.main"), fb.Headline.Main),
			Sub:  or(res.String("headline.sub"), fb.Headline.Sub),
		},
		Lead:       or(res.String("lead"), fb.Lead),
		Body:       or(res.String("body"), fb.Body),
		Conclusion: or(res.String("conclusion"), fb.Conclusion),
		SideInfo: core.SideInfo{
			Keywords:           res.List("sideInfo.keywords"),
			FutureImplications: or(res.String("sideInfo.futureImplications"), fb.SideInfo.FutureImplications),
		},
	}
	if len(c.SideInfo.Keywords) == 0 {
		c.SideInfo.Keywords = fb.SideInfo.Keywords
	}
	return c, res.Strategy
}

// FallbackNewspaper assembles content directly from the source analyses.
func FallbackNewspaper(sources []Source) core.NewspaperContent {
	var main Source
	if len(sources) > 0 {
		main = sources[0]
	}

	headline := strings.TrimSpace(main.Title)
	if headline == "" {
		headline = UntitledHeadline
	}
	sub := main.Analysis.AcademicField
	if len(main.Analysis.KeyPoints) > 0 {
		sub = main.Analysis.KeyPoints[0]
	}

	var body strings.Builder
	for i, s := range sources {
		if s.Analysis.Summary == "" {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		if i > 0 && s.Title != "" {
			body.WriteString(s.Title)
			body.WriteString(": ")
		}
		body.WriteString(s.Analysis.Summary)
	}

	return core.NewspaperContent{
		Headline:   core.Headline{Main: headline, Sub: or(sub, Unknown)},
		Lead:       or(main.Analysis.Summary, headline),
		Body:       or(body.String(), headline),
		Conclusion: or(main.Analysis.Significance, FallbackSignificance),
		SideInfo: core.SideInfo{
			Keywords:           relatedTopics(sources),
			FutureImplications: or(main.Analysis.Significance, FallbackSignificance),
		},
	}
}

// relatedTopics returns the case-insensitive union of all sources' related topics, in first-seen order.
func relatedTopics(sources []Source) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, s := range sources {
		for _, t := range s.Analysis.RelatedTopics {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
