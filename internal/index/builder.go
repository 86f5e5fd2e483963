package index

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// BuildOption customizes index construction. The defaults reproduce the
// package constants, so Build(docs) with no options is the canonical form.
type BuildOption func(*buildParams)

type buildParams struct {
	minChunkLen int
	maxChunkLen int
	vectorTerms int
	snippetLen  int
}

// WithChunkLimits overrides the chunker's merge and split thresholds.
func WithChunkLimits(minLen, maxLen int) BuildOption {
	return func(p *buildParams) {
		if minLen > 0 && maxLen >= minLen {
			p.minChunkLen = minLen
			p.maxChunkLen = maxLen
		}
	}
}

// WithVectorTerms overrides how many top-weight terms each chunk keeps.
func WithVectorTerms(n int) BuildOption {
	return func(p *buildParams) {
		if n > 0 {
			p.vectorTerms = n
		}
	}
}

// WithSnippetLen overrides the snippet length in runes.
func WithSnippetLen(n int) BuildOption {
	return func(p *buildParams) {
		if n > 0 {
			p.snippetLen = n
		}
	}
}

// Build constructs an immutable index from the given documents.
//
// Every document body is chunked, each chunk gets a TF-IDF vector truncated
// to the MaxVectorTerms highest-weight terms, and the global IDF map is
// restricted to terms that survived truncation in at least one chunk.
// Build is total: any input, including an empty corpus, produces an index.
func Build(docs []Doc, opts ...BuildOption) *Index {
	params := buildParams{
		minChunkLen: MinChunkLen,
		maxChunkLen: MaxChunkLen,
		vectorTerms: MaxVectorTerms,
		snippetLen:  SnippetLen,
	}
	for _, opt := range opts {
		opt(&params)
	}

	type draft struct {
		record ChunkRecord
		tf     map[string]int
	}

	var drafts []draft
	df := make(map[string]int)

	for _, doc := range docs {
		for ordinal, text := range chunkText(doc.Body, params.minChunkLen, params.maxChunkLen) {
			tf := TermFrequencies(Tokenize(text))
			drafts = append(drafts, draft{
				record: ChunkRecord{
					ID:      fmt.Sprintf("%s#%d", doc.ID, ordinal),
					Href:    doc.Href,
					Title:   doc.Title,
					Date:    doc.Date,
					Tags:    doc.Tags,
					Snippet: Snippet(text, params.snippetLen),
				},
				tf: tf,
			})
			for term := range tf {
				df[term]++
			}
		}
	}

	// Smoothed IDF over all observed terms. N falls back to 1 for an
	// empty corpus so the formula stays defined.
	n := float64(len(drafts))
	if n == 0 {
		n = 1
	}
	idfAll := make(map[string]float64, len(df))
	for term, count := range df {
		idfAll[term] = math.Log((n+1)/(float64(count)+1)) + 1.0
	}

	kept := make(map[string]struct{})
	chunks := make([]ChunkRecord, 0, len(drafts))
	for _, d := range drafts {
		vector := topTerms(d.tf, idfAll, params.vectorTerms)
		var sum float64
		for _, tw := range vector {
			sum += tw.Weight * tw.Weight
			kept[tw.Term] = struct{}{}
		}
		d.record.Vector = vector
		d.record.Norm = math.Sqrt(sum)
		chunks = append(chunks, d.record)
	}

	// Only terms still present in some vector enter the shipped IDF map.
	idf := make(map[string]float64, len(kept))
	for term := range kept {
		idf[term] = idfAll[term]
	}

	return &Index{
		Version: Version,
		BuiltAt: time.Now().UTC(),
		IDF:     idf,
		Chunks:  chunks,
	}
}

// topTerms ranks a chunk's terms by tf*idf weight and keeps the top limit.
// Equal weights break ties by term so truncation is deterministic.
func topTerms(tf map[string]int, idf map[string]float64, limit int) []TermWeight {
	weights := make([]TermWeight, 0, len(tf))
	for term, count := range tf {
		weights = append(weights, TermWeight{
			Term:   term,
			Weight: float64(count) * idf[term],
		})
	}
	sort.Slice(weights, func(i, j int) bool {
		if weights[i].Weight != weights[j].Weight {
			return weights[i].Weight > weights[j].Weight
		}
		return weights[i].Term < weights[j].Term
	})
	if len(weights) > limit {
		weights = weights[:limit]
	}
	return weights
}
