package enrichment

import (
	"context"
	"math"
	"sort"
)

const topK = 12

// Embedder is the subset of the model client the index needs.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Index is an ephemeral in-memory vector index over chunks. It lives for
// one enrichment run and is never persisted.
type Index struct {
	chunks  []Chunk
	vectors [][]float32
}

// BuildIndex embeds every chunk in one batch.
func BuildIndex(ctx context.Context, emb Embedder, chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return &Index{}, nil
	}
	inputs := make([]string, len(chunks))
	for i := range chunks {
		inputs[i] = chunks[i].Text
	}
	vectors, err := emb.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return &Index{chunks: chunks, vectors: vectors}, nil
}

// Search returns up to topK chunks most similar to the query.
func (ix *Index) Search(ctx context.Context, emb Embedder, query string) ([]Chunk, error) {
	if ix == nil || len(ix.chunks) == 0 {
		return nil, nil
	}
	qvecs, err := emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(qvecs) == 0 {
		return nil, nil
	}
	q := qvecs[0]

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(ix.chunks))
	for i := range ix.chunks {
		scores = append(scores, scored{idx: i, score: cosine(q, ix.vectors[i])})
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	n := topK
	if n > len(scores) {
		n = len(scores)
	}
	out := make([]Chunk, 0, n)
	for _, s := range scores[:n] {
		out = append(out, ix.chunks[s.idx])
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
