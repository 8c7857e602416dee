package domain

// SearchResult is a single vector store hit.
type SearchResult struct {
	// Text is the full chunk text.
	Text string

	// Distance is the Euclidean distance between the normalised query and chunk vectors.
	// Lower is more similar; 0 is identical, 2 is opposite.
	Distance float64

	// Metadata is the index-side chunk record.
	Metadata ChunkMetadata
}

// Similarity converts Distance to cosine similarity for normalised vectors.
func (r SearchResult) Similarity() float64 {
	return 1 - (r.Distance*r.Distance)/2
}

// AddStatus reports what AddDocument did.
type AddStatus string

// Add statuses.
const (
	// AddStatusAdded means the document's chunks were indexed.
	AddStatusAdded AddStatus = "added"

	// AddStatusSkipped means the document id already existed.
	AddStatusSkipped AddStatus = "skipped"
)

// AddResult summarises an AddDocument call.
type AddResult struct {
	DocID       string    `json:"doc_id"`
	Status      AddStatus `json:"status"`
	ChunksAdded int       `json:"chunks_added"`
	TotalChunks int       `json:"total_chunks"`
}

// VectorStoreStats describes the vector store.
type VectorStoreStats struct {
	Documents   int  `json:"documents"`
	Chunks      int  `json:"chunks"`
	LiveChunks  int  `json:"live_chunks"`
	Dimension   int  `json:"dimension"`
	IndexStale  bool `json:"index_stale"`
	IndexLoaded bool `json:"index_loaded"`
}

// Candidate is a search result moving through reranking.
type Candidate struct {
	SearchResult

	// Score is the reranker score after adjustments.
	Score float64

	// Rank is the position in the original vector search order.
	Rank int
}
