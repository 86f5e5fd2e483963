package mcp

import (
	"fmt"
	"strings"

	"github.com/notedex/notedex/internal/index"
)

// maxToolLimit caps the result count a tool call may request.
const maxToolLimit = 50

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results []index.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(results)))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

// formatResult formats a single result: a heading with title and
// score, a metadata line, then the snippet.
func formatResult(sb *strings.Builder, num int, r index.Result) {
	title := r.Chunk.Title
	if title == "" {
		title = r.Chunk.ID
	}

	fmt.Fprintf(sb, "### %d. %s (score: %.2f)\n\n", num, title, r.Score)

	fmt.Fprintf(sb, "`%s`", r.Chunk.Href)
	if r.Chunk.Date != "" {
		fmt.Fprintf(sb, " %s", r.Chunk.Date)
	}
	for _, tag := range r.Chunk.Tags {
		fmt.Fprintf(sb, " #%s", tag)
	}
	sb.WriteString("\n\n")

	if r.Chunk.Snippet != "" {
		sb.WriteString(r.Chunk.Snippet)
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n\n")
}

// toResultOutput converts a search result to the tool output format.
func toResultOutput(r index.Result) SearchResultOutput {
	return SearchResultOutput{
		ID:      r.Chunk.ID,
		Title:   r.Chunk.Title,
		Href:    r.Chunk.Href,
		Date:    r.Chunk.Date,
		Tags:    r.Chunk.Tags,
		Snippet: r.Chunk.Snippet,
		Score:   r.Score,
	}
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
