package activities

import "lexrag/internal/models"

type ListPDFsInput struct {
	InputDir string `json:"input_dir"`
}

type ListPDFsOutput struct {
	Paths []string `json:"paths"`
}

type ExtractTextInput struct {
	DocumentPath string `json:"document_path"`
}

type ExtractTextOutput struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	ContentHash string `json:"content_hash"`
}

type ChunkTextInput struct {
	Text         string `json:"text"`
	Filename     string `json:"filename"`
	Language     string `json:"language"`
	Jurisdiction string `json:"jurisdiction"`
	SourceType   string `json:"source_type"`
}

type ChunkTextOutput struct {
	Chunks []models.ChunkPayload `json:"chunks"`
}

type EmbedChunksInput struct {
	Texts []string `json:"texts"`
}

type EmbedChunksOutput struct {
	Vectors      [][]float32 `json:"vectors"`
	ProviderName string      `json:"provider_name"`
}

type StoreDocumentInput struct {
	Document models.Document       `json:"document"`
	Chunks   []models.ChunkPayload `json:"chunks"`
	Vectors  [][]float32           `json:"vectors"`
}

type WriteDocumentSummaryInput struct {
	Filename string         `json:"filename"`
	Summary  map[string]any `json:"summary"`
}

type WriteIngestSummaryInput struct {
	RunID   string         `json:"run_id"`
	Summary map[string]any `json:"summary"`
}
