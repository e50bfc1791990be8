package workflows

type KnowledgeIngestInput struct {
	RunID                 string `json:"run_id"`
	InputDir              string `json:"input_dir"`
	SourceType            string `json:"source_type"`
	Jurisdiction          string `json:"jurisdiction"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
}

type DocumentIngestInput struct {
	DocumentPath string `json:"document_path"`
	SourceType   string `json:"source_type"`
	Jurisdiction string `json:"jurisdiction"`
}

type DocumentStatus struct {
	DocumentPath string            `json:"document_path"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	FailReason   string            `json:"fail_reason,omitempty"`
	Language     string            `json:"language,omitempty"`
	ChunkCount   int               `json:"chunk_count"`
	Steps        map[string]string `json:"steps"`
}

type KnowledgeIngestProgress struct {
	RunID         string            `json:"run_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerDocument   map[string]string `json:"per_document_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
