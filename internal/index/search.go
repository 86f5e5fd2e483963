package index

import (
	"math"
	"sort"
)

// Search scores every chunk against the query by cosine similarity and
// returns the top k hits, highest score first. Ties keep corpus order.
//
// Query terms absent from the IDF map weigh in with a default idf of 1.0;
// the query norm runs over the query's own full term set. Chunks with no
// term overlap (a dot product of exactly zero) are excluded. Search never
// errors: a nil index, an empty query, or a query of only stop words all
// yield empty results. It does not mutate the index and is safe for
// concurrent use.
func Search(idx *Index, query string, k int) []Result {
	if k <= 0 {
		k = DefaultTopK
	}
	if idx == nil || len(idx.Chunks) == 0 {
		return nil
	}

	qtf := TermFrequencies(Tokenize(query))
	if len(qtf) == 0 {
		return nil
	}

	weights := make(map[string]float64, len(qtf))
	var sum float64
	for term, count := range qtf {
		idf, ok := idx.IDF[term]
		if !ok {
			idf = 1.0
		}
		w := float64(count) * idf
		weights[term] = w
		sum += w * w
	}
	qnorm := math.Sqrt(sum)
	if qnorm == 0 {
		return nil
	}

	results := make([]Result, 0, len(idx.Chunks))
	for i := range idx.Chunks {
		chunk := &idx.Chunks[i]
		if chunk.Norm == 0 {
			continue
		}
		var dot float64
		for _, tw := range chunk.Vector {
			if qw, ok := weights[tw.Term]; ok {
				dot += qw * tw.Weight
			}
		}
		if dot == 0 {
			continue
		}
		results = append(results, Result{
			Score: dot / (chunk.Norm * qnorm),
			Chunk: *chunk,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
