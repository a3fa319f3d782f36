package parser

import (
	"papertimes/internal/core"
)

const (
	// FallbackSummaryRunes is how much raw text becomes the summary when nothing structured is found.
	FallbackSummaryRunes = 500
	// FallbackConfidence is the confidence score reported for unparseable or incomplete analyses.
	FallbackConfidence = 30
	// FallbackKeyPoint is the single key point of a fallback analysis.
	FallbackKeyPoint = "AI解析結果のパースに失敗しました"
	// FallbackSignificance fills the significance of a fallback analysis.
	FallbackSignificance = "重要性の評価を取得できませんでした"
	// Unknown fills categorical fields that could not be determined.
	Unknown = "unknown"
)

// AnalysisSchema is the set of fields requested from the analysis prompt.
var AnalysisSchema = Schema{Fields: []Field{
	{Path: "summary", Kind: KindString},
	{Path: "keyPoints", Kind: KindList},
	{Path: "significance", Kind: KindString},
	{Path: "relatedTopics", Kind: KindList},
	{Path: "academicField", Kind: KindString},
	{Path: "technicalLevel", Kind: KindString},
	{Path: "confidenceScore", Kind: KindInt},
}}

// ParseAnalysis converts an analysis response into a fully populated Analysis.
func ParseAnalysis(raw string) (core.Analysis, Strategy) {
	res := Parse(raw, AnalysisSchema)
	if res.Strategy == StrategyFallback {
		return FallbackAnalysis(raw), StrategyFallback
	}

	a := core.Analysis{
		Summary:        res.String("summary"),
		KeyPoints:      res.List("keyPoints"),
		Significance:   res.String("significance"),
		RelatedTopics:  res.List("relatedTopics"),
		AcademicField:  res.String("academicField"),
		TechnicalLevel: core.ParseTechnicalLevel(res.String("technicalLevel")),
	}
	if a.AcademicField == "" {
		a.AcademicField = Unknown
	}
	if a.Summary == "" {
		a.Summary = Truncate(stripFences(raw), FallbackSummaryRunes)
	}
	if a.Significance == "" {
		a.Significance = FallbackSignificance
	}
	if len(a.KeyPoints) == 0 {
		a.KeyPoints = []string{FallbackKeyPoint}
	}

	score, ok := res.Int("confidenceScore")
	if !ok {
		score = FallbackConfidence
	}
	a.ConfidenceScore = clamp(score, 0, 100)

	return a, res.Strategy
}

// FallbackAnalysis builds the deterministic analysis used when a response carries no structure.
func FallbackAnalysis(raw string) core.Analysis {
	return core.Analysis{
		Summary:         Truncate(stripFences(raw), FallbackSummaryRunes),
		KeyPoints:       []string{FallbackKeyPoint},
		Significance:    FallbackSignificance,
		RelatedTopics:   []string{},
		AcademicField:   Unknown,
		TechnicalLevel:  core.LevelUnknown,
		ConfidenceScore: FallbackConfidence,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
