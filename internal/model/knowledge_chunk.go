package model

// KnowledgeChunk is one retrieval unit of the corpus artifact (data/embeddings.json).
type KnowledgeChunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"embedding"`
}
