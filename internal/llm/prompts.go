package llm

// Prompt templates. Placeholders are {name} and are filled by RenderTemplate.
const (
	// AnalysisPrompt variables: title, authors, text.
	AnalysisPrompt = `You are an expert research analyst. Read the academic paper below and analyze it.

Respond with a single JSON object and nothing else, using exactly these fields:
{
  "summary": "3-5 sentence summary of the paper",
  "keyPoints": ["key finding", "..."],
  "significance": "why the work matters to its field",
  "relatedTopics": ["topic", "..."],
  "academicField": "primary academic field",
  "technicalLevel": "beginner | intermediate | advanced",
  "confidenceScore": 0-100 integer, how confident you are in this analysis
}

Title: {title}
Authors: {authors}

Paper text:
---
{text}
---`

	// NewspaperPrompt variables: template_name, style, main_paper, supporting_papers.
	NewspaperPrompt = `You are the editor of a science newspaper. Write a newspaper article in the "{template_name}" style.
Style guide: {style}

The MAIN paper is the lead story. SUPPORTING papers provide context and may be cited.

MAIN PAPER:
{main_paper}

SUPPORTING PAPERS:
{supporting_papers}

Respond with a single JSON object and nothing else, using exactly these fields:
{
  "headline": {"main": "headline, at most 60 characters", "sub": "sub-headline"},
  "lead": "one-paragraph lead",
  "body": "article body, several paragraphs",
  "conclusion": "closing paragraph",
  "sideInfo": {"keywords": ["keyword", "..."], "futureImplications": "what this could lead to"}
}`

	// HeadlinePrompt variables: content.
	HeadlinePrompt = `Write a newspaper headline for the article below.

Respond with a single JSON object and nothing else:
{"main": "headline, at most 60 characters", "sub": "sub-headline, one sentence"}

Article:
---
{content}
---`
)
