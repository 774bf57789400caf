package llm

import (
	"fmt"
	"strings"

	"newslens/internal/feed"
)

const synthesisInstructions = `Please provide your analysis in the following structure:

## Common Themes
[What multiple sources agree on]

## Source-Specific Perspectives
[Unique information from each source]

## Sentiment Analysis
[Overall tone and sentiment of each source]

## Potential Biases
[Any detected biases or editorial slants]

## Comprehensive Synthesis
[Your balanced summary incorporating all perspectives]

## Key Takeaways
[3-5 bullet points of the most important insights]`

// BuildSynthesisPrompt formats the whole batch into the analysis prompt
// shared by every backend.
func BuildSynthesisPrompt(items []feed.Item) string {
	blocks := make([]string, 0, len(items))
	for i, item := range items {
		summary := item.Summary
		if summary == "" {
			summary = "No summary available"
		}
		blocks = append(blocks, fmt.Sprintf(`Article %d:
Source: %s
Title: %s
Published: %s
Link: %s
Summary: %s`,
			i+1, item.SourceName, item.Title, item.Published, item.Link, summary))
	}

	return fmt.Sprintf(`You are an expert news analyst. I have collected %d articles from various sources on a specific topic. Your task is to:

1. **Identify Common Themes**: What are the main points that multiple sources agree on?
2. **Highlight Differences**: What unique perspectives or information does each source provide?
3. **Analyze Sentiment & Tone**: What is the overall sentiment (positive, negative, neutral) of each source?
4. **Detect Bias**: Are there any noticeable biases in how different sources present the information?
5. **Provide Synthesis**: Create a comprehensive, balanced summary that incorporates all perspectives.

Here are the articles:

%s

%s`, len(items), strings.Join(blocks, "\n---\n"), synthesisInstructions)
}
