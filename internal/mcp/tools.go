package mcp

import "github.com/notedex/notedex/internal/engine"

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to run against the note index"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 6"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query   string               `json:"query" jsonschema:"the query that was executed"`
	Count   int                  `json:"count" jsonschema:"number of results returned"`
	Results []SearchResultOutput `json:"results" jsonschema:"list of matching chunks"`
}

// SearchResultOutput defines a single search result.
type SearchResultOutput struct {
	ID      string   `json:"id" jsonschema:"chunk identifier (doc id plus ordinal)"`
	Title   string   `json:"title" jsonschema:"title of the source note"`
	Href    string   `json:"href" jsonschema:"link to the source note"`
	Date    string   `json:"date,omitempty" jsonschema:"note date when known"`
	Tags    []string `json:"tags,omitempty" jsonschema:"tags of the source note"`
	Snippet string   `json:"snippet" jsonschema:"matched content snippet"`
	Score   float64  `json:"score" jsonschema:"cosine similarity score"`
}

// StatusInput defines the input schema for the status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the status tool.
type StatusOutput struct {
	Vault VaultInfo      `json:"vault" jsonschema:"information about the note tree"`
	Index *engine.Status `json:"index" jsonschema:"index shape, last build, and query metrics"`
}

// RebuildInput defines the input schema for the rebuild tool (no parameters).
type RebuildInput struct{}
