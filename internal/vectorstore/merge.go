package vectorstore

import "lexrag/internal/models"

// MergePolicy combines the per-store result lists into one final list of
// at most topK chunks. Implementations must not reorder within either
// input list.
type MergePolicy interface {
	Name() string
	Merge(session, general []models.RetrievedChunk, topK int) []models.RetrievedChunk
}

// PriorityMerge places every session hit ahead of every general hit,
// regardless of score, then truncates to topK. Session documents are
// what the user just uploaded, so they outrank background knowledge
// even when their similarity scores are lower.
type PriorityMerge struct{}

func (PriorityMerge) Name() string { return "session-priority" }

func (PriorityMerge) Merge(session, general []models.RetrievedChunk, topK int) []models.RetrievedChunk {
	merged := make([]models.RetrievedChunk, 0, len(session)+len(general))
	merged = append(merged, session...)
	merged = append(merged, general...)
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
