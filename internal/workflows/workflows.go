package workflows

import (
	"path/filepath"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"lexrag/internal/activities"
	"lexrag/internal/models"
)

const (
	QueryGetIngestProgress = "GetIngestProgress"
	QueryGetDocumentStatus = "GetDocumentStatus"
)

// KnowledgeIngestWorkflow walks a directory of PDFs and runs one child
// workflow per document, bounded by MaxConcurrentChildren. Documents
// that fail are counted and reported, never retried at this level; the
// child's own retry policy already covered transient failures.
func KnowledgeIngestWorkflow(ctx workflow.Context, input KnowledgeIngestInput) (string, error) {
	progress := KnowledgeIngestProgress{
		RunID:         input.RunID,
		PerDocument:   map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestProgress, func() (KnowledgeIngestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var listOut activities.ListPDFsOutput
	if err := workflow.ExecuteActivity(ctx, "ListPDFsActivity", activities.ListPDFsInput{InputDir: input.InputDir}).Get(ctx, &listOut); err != nil {
		return "", err
	}
	paths := listOut.Paths
	progress.Total = len(paths)

	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(paths); i += maxChildren {
		end := i + maxChildren
		if end > len(paths) {
			end = len(paths)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		childPaths := make([]string, 0, end-i)
		for _, path := range paths[i:end] {
			progress.PerDocument[path] = "processing"
			workflowID := "document-" + sanitizeID(input.RunID) + "-" + sanitizeID(filepath.Base(path))
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			f := workflow.ExecuteChildWorkflow(childCtx, DocumentIngestWorkflow, DocumentIngestInput{
				DocumentPath: path,
				SourceType:   input.SourceType,
				Jurisdiction: input.Jurisdiction,
			})
			futures = append(futures, f)
			childPaths = append(childPaths, path)
			progress.ChildWorkflow[path] = workflowID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			path := childPaths[idx]
			if err != nil {
				progress.Failed++
				progress.PerDocument[path] = "failed"
				continue
			}
			if childStatus == "failed" {
				progress.Failed++
			}
			progress.Done++
			progress.PerDocument[path] = childStatus
		}
	}

	_ = workflow.ExecuteActivity(ctx, "WriteIngestSummaryActivity", activities.WriteIngestSummaryInput{
		RunID: input.RunID,
		Summary: map[string]any{
			"run_id":              input.RunID,
			"total":               progress.Total,
			"done":                progress.Done,
			"failed":              progress.Failed,
			"per_document_status": progress.PerDocument,
			"generated_at":        workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	return "completed", nil
}

// DocumentIngestWorkflow runs the extract, chunk, embed, store pipeline
// for one PDF. Documents with no usable text layer finish as "failed"
// with a reason instead of erroring, so one scanned judgment never
// sinks the whole run.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (string, error) {
	status := DocumentStatus{
		DocumentPath: input.DocumentPath,
		CurrentStep:  "init",
		Status:       "processing",
		Steps:        map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetDocumentStatus, func() (DocumentStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	filename := filepath.Base(input.DocumentPath)

	status.CurrentStep = "extract_text"
	status.Steps[status.CurrentStep] = "processing"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{DocumentPath: input.DocumentPath}).Get(ctx, &textOut); err != nil {
		if reason, fatal := extractionFailReason(err); fatal {
			status.Status = "failed"
			status.FailReason = reason
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		return "", err
	}
	status.Language = textOut.Language
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "chunk_text"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkTextActivity", activities.ChunkTextInput{
		Text:         textOut.Text,
		Filename:     filename,
		Language:     textOut.Language,
		Jurisdiction: input.Jurisdiction,
		SourceType:   input.SourceType,
	}).Get(ctx, &chunkOut); err != nil {
		return "", err
	}
	status.ChunkCount = len(chunkOut.Chunks)
	status.Steps[status.CurrentStep] = "done"

	texts := make([]string, 0, len(chunkOut.Chunks))
	for _, ch := range chunkOut.Chunks {
		texts = append(texts, ch.Text)
	}

	status.CurrentStep = "embed_chunks"
	status.Steps[status.CurrentStep] = "processing"
	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{Texts: texts}).Get(ctx, &embedOut); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "store_document"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "StoreDocumentActivity", activities.StoreDocumentInput{
		Document: models.Document{
			Filename:     filename,
			SourceType:   input.SourceType,
			Language:     textOut.Language,
			Jurisdiction: input.Jurisdiction,
		},
		Chunks:  chunkOut.Chunks,
		Vectors: embedOut.Vectors,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "write_summary"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "WriteDocumentSummaryActivity", activities.WriteDocumentSummaryInput{
		Filename: filename,
		Summary: map[string]any{
			"filename":     filename,
			"content_hash": textOut.ContentHash,
			"language":     textOut.Language,
			"chunk_count":  len(chunkOut.Chunks),
			"steps":        status.Steps,
			"generated_at": workflow.Now(ctx),
		},
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "done"
	status.Status = "processed"
	return status.Status, nil
}

// extractionFailReason classifies extraction errors that make the
// document permanently unprocessable without OCR.
func extractionFailReason(err error) (string, bool) {
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "no extractable text"):
		return "no extractable text found (OCR not enabled)", true
	case strings.Contains(e, "appears to be scanned"):
		return "document appears to be scanned (OCR not enabled)", true
	}
	return "", false
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
