package retrieval

import (
	"math"
	"testing"

	"portfolio-agent/internal/model"
)

const eps = 1e-9

func TestCosineSymmetricAndBounded(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 0, 0}, {0, 1, 0}},
		{{1, 2, 3}, {3, 2, 1}},
		{{-1, -2}, {1, 2}},
		{{0.5, 0.25, -4}, {9, -3, 0.1}},
	}
	for _, p := range pairs {
		ab, ba := Cosine(p[0], p[1]), Cosine(p[1], p[0])
		if math.Abs(ab-ba) > eps {
			t.Errorf("Cosine not symmetric: %v vs %v", ab, ba)
		}
		if ab < -1-eps || ab > 1+eps {
			t.Errorf("Cosine out of range: %v", ab)
		}
	}
	if got := Cosine([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > eps {
		t.Errorf("parallel vectors: got %v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-3, 0}); math.Abs(got+1) > eps {
		t.Errorf("opposite vectors: got %v", got)
	}
}

func TestCosineZeroVectorReturnsDotProduct(t *testing.T) {
	if got := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}); got != 0 {
		t.Fatalf("Cosine with zero vector = %v, want 0", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Fatalf("Cosine(nil, nil) = %v", got)
	}
}

func TestCosineUsesCommonPrefix(t *testing.T) {
	if got := Cosine([]float32{1, 0, 7}, []float32{1, 0}); math.Abs(got-1) > eps {
		t.Fatalf("Cosine over prefix = %v, want 1", got)
	}
}

func chunk(id string, vec ...float32) model.KnowledgeChunk {
	return model.KnowledgeChunk{ID: id, Text: id, Source: "knowledge/" + id + ".md", Embedding: vec}
}

func TestRankSmallCorpusReturnsEverythingOrdered(t *testing.T) {
	corpus := []model.KnowledgeChunk{
		chunk("far", 0, 1),
		chunk("near", 1, 0.1),
		chunk("mid", 1, 1),
	}
	got := Rank([]float32{1, 0}, corpus, 6)
	if len(got) != len(corpus) {
		t.Fatalf("len = %d, want %d", len(got), len(corpus))
	}
	wantOrder := []string{"near", "mid", "far"}
	for i, id := range wantOrder {
		if got[i].Chunk.ID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].Chunk.ID, id)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("not descending at %d", i)
		}
	}
}

func TestRankKeepsCorpusOrderOnTies(t *testing.T) {
	corpus := []model.KnowledgeChunk{
		chunk("a", 1, 0),
		chunk("b", 2, 0),
		chunk("c", 3, 0),
		chunk("d", 0, 1),
	}
	got := Rank([]float32{1, 0}, corpus, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i, id := range []string{"a", "b", "c"} {
		if got[i].Chunk.ID != id {
			t.Fatalf("tie order broken: position %d = %s", i, got[i].Chunk.ID)
		}
	}
}

func TestRankEdgeCases(t *testing.T) {
	if got := Rank([]float32{1}, nil, 3); len(got) != 0 {
		t.Fatalf("empty corpus returned %d results", len(got))
	}
	if got := Rank([]float32{1}, []model.KnowledgeChunk{chunk("a", 1)}, 0); len(got) != 0 {
		t.Fatalf("k=0 returned %d results", len(got))
	}
}
