package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListPDFsActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ChunkTextActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.StoreDocumentActivity)
	w.RegisterActivity(a.WriteDocumentSummaryActivity)
	w.RegisterActivity(a.WriteIngestSummaryActivity)
}
