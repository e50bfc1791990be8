package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"lexrag/internal/activities"
	"lexrag/internal/models"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerDocumentActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "ChunkTextActivity", func(context.Context, activities.ChunkTextInput) (activities.ChunkTextOutput, error) {
		return activities.ChunkTextOutput{}, nil
	})
	registerActivityName(env, "EmbedChunksActivity", func(context.Context, activities.EmbedChunksInput) (activities.EmbedChunksOutput, error) {
		return activities.EmbedChunksOutput{}, nil
	})
	registerActivityName(env, "StoreDocumentActivity", func(context.Context, activities.StoreDocumentInput) error { return nil })
	registerActivityName(env, "WriteDocumentSummaryActivity", func(context.Context, activities.WriteDocumentSummaryInput) error { return nil })
}

func TestDocumentIngestWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, activities.ExtractTextInput{DocumentPath: "/tmp/ipc.pdf"}).
		Return(activities.ExtractTextOutput{Text: "SECTION 1 body", Language: "en", ContentHash: "abc"}, nil)
	env.OnActivity("ChunkTextActivity", mock.Anything, mock.Anything).
		Return(activities.ChunkTextOutput{Chunks: []models.ChunkPayload{{Text: "SECTION 1 body"}}}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, activities.EmbedChunksInput{Texts: []string{"SECTION 1 body"}}).
		Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.1, 0.2}}, ProviderName: "mock"}, nil)
	env.OnActivity("StoreDocumentActivity", mock.Anything, mock.MatchedBy(func(in activities.StoreDocumentInput) bool {
		return in.Document.Filename == "ipc.pdf" && in.Document.Language == "en" && len(in.Vectors) == 1
	})).Return(nil)
	env.OnActivity("WriteDocumentSummaryActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentPath: "/tmp/ipc.pdf", SourceType: "statute", Jurisdiction: "India"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "processed", out)
}

func TestDocumentIngestWorkflowScannedPDFFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractTextOutput{}, errors.New("document appears to be scanned, OCR required"))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentPath: "/tmp/scan.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestDocumentIngestWorkflowNoTextFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractTextOutput{}, errors.New("no extractable text found in document"))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{DocumentPath: "/tmp/empty.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestKnowledgeIngestWorkflowCountsChildren(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(KnowledgeIngestWorkflow)
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerDocumentActivities(env)
	registerActivityName(env, "ListPDFsActivity", func(context.Context, activities.ListPDFsInput) (activities.ListPDFsOutput, error) {
		return activities.ListPDFsOutput{}, nil
	})
	registerActivityName(env, "WriteIngestSummaryActivity", func(context.Context, activities.WriteIngestSummaryInput) error { return nil })

	env.OnActivity("ListPDFsActivity", mock.Anything, activities.ListPDFsInput{InputDir: "/tmp/kb"}).
		Return(activities.ListPDFsOutput{Paths: []string{"/tmp/kb/a.pdf", "/tmp/kb/b.pdf"}}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractTextOutput{Text: "SECTION 1 body", Language: "en"}, nil)
	env.OnActivity("ChunkTextActivity", mock.Anything, mock.Anything).
		Return(activities.ChunkTextOutput{Chunks: []models.ChunkPayload{{Text: "SECTION 1 body"}}}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).
		Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.1, 0.2}}}, nil)
	env.OnActivity("StoreDocumentActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("WriteDocumentSummaryActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("WriteIngestSummaryActivity", mock.Anything, mock.MatchedBy(func(in activities.WriteIngestSummaryInput) bool {
		return in.RunID == "run1"
	})).Return(nil)

	env.ExecuteWorkflow(KnowledgeIngestWorkflow, KnowledgeIngestInput{RunID: "run1", InputDir: "/tmp/kb", MaxConcurrentChildren: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
}
