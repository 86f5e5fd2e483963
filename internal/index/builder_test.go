package index

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_EmptyCorpus(t *testing.T) {
	idx := Build(nil)

	require.NotNil(t, idx)
	assert.Equal(t, Version, idx.Version)
	assert.Empty(t, idx.Chunks)
	assert.Empty(t, idx.IDF)
	assert.NoError(t, idx.Validate())
}

func TestBuild_DocWithEmptyBodyContributesNoChunks(t *testing.T) {
	idx := Build([]Doc{
		{ID: "empty", Title: "Empty", Body: ""},
		{ID: "real", Title: "Real", Body: "vulkan driver crashed during swapchain creation"},
	})

	require.Len(t, idx.Chunks, 1)
	assert.Equal(t, "real#0", idx.Chunks[0].ID)
}

func TestBuild_ChunkIDsCarryDocIDAndOrdinal(t *testing.T) {
	// 2500 bytes of one paragraph: two chunks after hard split and merge.
	idx := Build([]Doc{{
		ID:    "posts/vulkan-notes",
		Title: "Vulkan Notes",
		Href:  "/posts/vulkan-notes",
		Body:  strings.Repeat("x", 2500),
	}})

	require.Len(t, idx.Chunks, 2)
	assert.Equal(t, "posts/vulkan-notes#0", idx.Chunks[0].ID)
	assert.Equal(t, "posts/vulkan-notes#1", idx.Chunks[1].ID)
	for _, c := range idx.Chunks {
		assert.Equal(t, "Vulkan Notes", c.Title)
		assert.Equal(t, "/posts/vulkan-notes", c.Href)
	}
}

func TestBuild_IDFBounds(t *testing.T) {
	// Three single-chunk docs. "common" is in every chunk, "mid" in two,
	// "rare" in one.
	idx := Build([]Doc{
		{ID: "d1", Body: "common mid rare filler"},
		{ID: "d2", Body: "common mid other filler"},
		{ID: "d3", Body: "common alone filler words"},
	})

	require.Len(t, idx.Chunks, 3)

	// A term present in every chunk has idf exactly 1.0.
	assert.Equal(t, 1.0, idx.IDF["common"])

	// Rarer terms always score strictly higher.
	assert.Greater(t, idx.IDF["rare"], idx.IDF["mid"])
	assert.Greater(t, idx.IDF["mid"], idx.IDF["common"])

	// Exact smoothed values: ln((N+1)/(df+1)) + 1 with N=3.
	assert.InDelta(t, math.Log(4.0/2.0)+1.0, idx.IDF["rare"], 1e-12)
	assert.InDelta(t, math.Log(4.0/3.0)+1.0, idx.IDF["mid"], 1e-12)
}

func TestBuild_VectorTruncatedToTopTerms(t *testing.T) {
	// One chunk with 35 distinct terms: 32 doubled, 3 singles. The three
	// low-weight singles must be truncated away.
	var sb strings.Builder
	for i := 0; i < 32; i++ {
		word := fmt.Sprintf("keep%02d", i)
		sb.WriteString(word + " " + word + " ")
	}
	sb.WriteString("lost0 lost1 lost2")

	idx := Build([]Doc{{ID: "d", Body: sb.String()}})

	require.Len(t, idx.Chunks, 1)
	vector := idx.Chunks[0].Vector
	require.Len(t, vector, MaxVectorTerms)

	for _, tw := range vector {
		assert.True(t, strings.HasPrefix(tw.Term, "keep"), "unexpected term %q", tw.Term)
	}

	// Truncated terms do not leak into the global idf map.
	_, ok := idx.IDF["lost0"]
	assert.False(t, ok)
	assert.Len(t, idx.IDF, MaxVectorTerms)
}

func TestBuild_VectorSortedByWeightDescending(t *testing.T) {
	idx := Build([]Doc{{
		ID:   "d",
		Body: "gpu gpu gpu driver driver vulkan swapchain",
	}})

	require.Len(t, idx.Chunks, 1)
	vector := idx.Chunks[0].Vector
	require.NotEmpty(t, vector)

	for i := 1; i < len(vector); i++ {
		assert.GreaterOrEqual(t, vector[i-1].Weight, vector[i].Weight)
	}
	assert.Equal(t, "gpu", vector[0].Term)
}

func TestBuild_NormIsL2OverKeptWeightsOnly(t *testing.T) {
	// Single chunk, single doc: all idf values are exactly 1.0, so weights
	// equal raw term frequencies.
	idx := Build([]Doc{{ID: "d", Body: "gpu gpu driver vulkan"}})

	require.Len(t, idx.Chunks, 1)
	chunk := idx.Chunks[0]

	var sum float64
	for _, tw := range chunk.Vector {
		sum += tw.Weight * tw.Weight
	}
	assert.InDelta(t, math.Sqrt(sum), chunk.Norm, 1e-12)
	assert.InDelta(t, math.Sqrt(2*2+1+1), chunk.Norm, 1e-12)
}

func TestBuild_SnippetIsCollapsedPrefix(t *testing.T) {
	body := "Vulkan   renderer\nnotes\n\n" + strings.Repeat("driver detail ", 80)

	idx := Build([]Doc{{ID: "d", Body: body}})

	require.NotEmpty(t, idx.Chunks)
	snippet := idx.Chunks[0].Snippet
	assert.True(t, strings.HasPrefix(snippet, "Vulkan renderer notes"))
	assert.NotContains(t, snippet, "\n")
	assert.LessOrEqual(t, len([]rune(snippet)), SnippetLen)
}

func TestBuild_SetsVersionAndBuiltAt(t *testing.T) {
	before := time.Now().UTC()
	idx := Build([]Doc{{ID: "d", Body: "vulkan driver"}})
	after := time.Now().UTC()

	assert.Equal(t, Version, idx.Version)
	assert.False(t, idx.BuiltAt.Before(before))
	assert.False(t, idx.BuiltAt.After(after))
}

func TestBuild_ResultValidates(t *testing.T) {
	idx := Build([]Doc{
		{ID: "a", Body: strings.Repeat("alpha beta gamma ", 60)},
		{ID: "b", Body: strings.Repeat("delta epsilon ", 80)},
	})

	assert.NoError(t, idx.Validate())
}

func TestBuild_MetadataInheritedByChunks(t *testing.T) {
	idx := Build([]Doc{{
		ID:    "notes/gpu",
		Title: "GPU Notes",
		Href:  "/notes/gpu",
		Date:  "2026-08-01",
		Tags:  []string{"graphics", "driver"},
		Body:  "vulkan swapchain recreation on resize",
	}})

	require.Len(t, idx.Chunks, 1)
	c := idx.Chunks[0]
	assert.Equal(t, "2026-08-01", c.Date)
	assert.Equal(t, []string{"graphics", "driver"}, c.Tags)
}

func TestBuild_Options(t *testing.T) {
	t.Run("vector terms cap", func(t *testing.T) {
		docs := []Doc{{ID: "n", Body: "gpu gpu driver"}}

		idx := Build(docs, WithVectorTerms(1))

		require.Len(t, idx.Chunks, 1)
		require.Len(t, idx.Chunks[0].Vector, 1)
		assert.Equal(t, "gpu", idx.Chunks[0].Vector[0].Term)
		assert.NotContains(t, idx.IDF, "driver")
	})

	t.Run("chunk limits", func(t *testing.T) {
		body := para(150) + "\n\n" + para(150)
		docs := []Doc{{ID: "n", Body: body}}

		assert.Len(t, Build(docs).Chunks, 1)
		assert.Len(t, Build(docs, WithChunkLimits(100, 200)).Chunks, 2)
	})

	t.Run("snippet length", func(t *testing.T) {
		docs := []Doc{{ID: "n", Body: "a snippet that runs well past ten runes"}}

		idx := Build(docs, WithSnippetLen(10))

		require.Len(t, idx.Chunks, 1)
		assert.LessOrEqual(t, len([]rune(idx.Chunks[0].Snippet)), 10)
	})

	t.Run("invalid option values ignored", func(t *testing.T) {
		docs := []Doc{{ID: "n", Body: "gpu driver"}}

		idx := Build(docs, WithVectorTerms(0), WithChunkLimits(0, -1), WithSnippetLen(-5))

		require.Len(t, idx.Chunks, 1)
		assert.Len(t, idx.Chunks[0].Vector, 2)
	})
}
