package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"

	"lexrag/internal/chunking"
	"lexrag/internal/config"
	"lexrag/internal/ingestion"
	"lexrag/internal/rag"
	"lexrag/internal/storage"
	"lexrag/internal/util"
	"lexrag/internal/vectorstore"
	"lexrag/internal/workflows"
)

type Server struct {
	cfg      config.Config
	log      *zap.SugaredLogger
	manager  *vectorstore.Manager
	pipeline *rag.Pipeline
	loader   *ingestion.Loader
	chunker  *chunking.LegalChunker
	docRepo  *storage.DocumentRepo
	temporal tclient.Client
}

type ServerOptions struct {
	Cfg      config.Config
	Log      *zap.SugaredLogger
	Manager  *vectorstore.Manager
	Pipeline *rag.Pipeline
	Loader   *ingestion.Loader
	Chunker  *chunking.LegalChunker
	DocRepo  *storage.DocumentRepo
	Temporal tclient.Client
}

func NewServer(opts ServerOptions) *Server {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	return &Server{
		cfg:      opts.Cfg,
		log:      opts.Log,
		manager:  opts.Manager,
		pipeline: opts.Pipeline,
		loader:   opts.Loader,
		chunker:  opts.Chunker,
		docRepo:  opts.DocRepo,
		temporal: opts.Temporal,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/session/upload", s.handleSessionUpload)
	mux.HandleFunc("/knowledge/ingest", s.handleKnowledgeIngest)
	mux.HandleFunc("/knowledge/progress", s.handleKnowledgeProgress)
	mux.HandleFunc("/documents", s.handleDocuments)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"session_chunks": s.manager.SessionChunkCount(),
	})
}

type askCitation struct {
	RefID      string  `json:"ref_id"`
	DocumentID string  `json:"document_id,omitempty"`
	Source     string  `json:"source"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	ans, err := s.pipeline.Ask(r.Context(), req.Question)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	citations := make([]askCitation, 0, len(ans.Citations))
	for i, c := range ans.Citations {
		citations = append(citations, askCitation{
			RefID:      fmt.Sprintf("[%d]", i+1),
			DocumentID: c.DocumentID,
			Source:     c.Source,
			Snippet:    util.Snippet(c.Text, 280),
			Score:      c.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":    ans.Text,
		"language":  ans.Language,
		"citations": citations,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	chunks, err := s.manager.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": chunks})
}

type uploadResult struct {
	Filename   string `json:"filename"`
	Language   string `json:"language"`
	ChunkCount int    `json:"chunk_count"`
}

// handleSessionUpload receives PDFs for this session, chunks them and
// indexes them in the ephemeral store. Scanned documents are reported
// per file, not as a request failure, so one bad file in a batch does
// not lose the rest.
func (s *Server) handleSessionUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("at least one file is required"))
		return
	}

	uploadDir := filepath.Join(s.cfg.DataInRoot, "session")
	if err := util.EnsureDir(uploadDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	uploaded := make([]uploadResult, 0, len(files))
	skipped := make([]map[string]string, 0)
	for _, fh := range files {
		path, err := saveUploadedFile(uploadDir, fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		text, err := s.loader.LoadPDF(path)
		if err != nil {
			if errors.Is(err, util.ErrScannedDocument) || errors.Is(err, util.ErrNoExtractableText) {
				s.log.Infow("upload skipped", "filename", filepath.Base(path), "reason", err)
				skipped = append(skipped, map[string]string{
					"filename": filepath.Base(path),
					"reason":   err.Error(),
				})
				continue
			}
			writeErr(w, http.StatusUnprocessableEntity, err)
			return
		}
		lang := ingestion.DetectLanguage(text, s.cfg.DefaultLanguage)
		chunks := s.chunker.Chunk(text, map[string]any{
			"filename": filepath.Base(path),
			"language": lang,
		})
		if err := s.manager.AddSessionDocument(r.Context(), chunks); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		uploaded = append(uploaded, uploadResult{
			Filename:   filepath.Base(path),
			Language:   lang,
			ChunkCount: len(chunks),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploaded":       uploaded,
		"skipped":        skipped,
		"session_chunks": s.manager.SessionChunkCount(),
	})
}

func (s *Server) handleKnowledgeIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("workflow engine not configured"))
		return
	}
	var req struct {
		InputDir     string `json:"input_dir"`
		SourceType   string `json:"source_type"`
		Jurisdiction string `json:"jurisdiction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if req.InputDir == "" {
		req.InputDir = filepath.Join(s.cfg.DataInRoot, "knowledge")
	}
	if req.SourceType == "" {
		req.SourceType = "statute"
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = s.cfg.DefaultJurisdict
	}

	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "ingest-" + runID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.KnowledgeIngestWorkflow, workflows.KnowledgeIngestInput{
		RunID:                 runID,
		InputDir:              req.InputDir,
		SourceType:            req.SourceType,
		Jurisdiction:          req.Jurisdiction,
		MaxConcurrentChildren: s.cfg.IngestMaxChildren,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ingest_run_id": runID,
		"workflow_id":   we.GetID(),
		"run_id":        we.GetRunID(),
	})
}

func (s *Server) handleKnowledgeProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("workflow engine not configured"))
		return
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("run_id is required"))
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), "ingest-"+runID, "", workflows.QueryGetIngestProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	var prog workflows.KnowledgeIngestProgress
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	docs, err := s.docRepo.ListDocuments(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	total, err := s.docRepo.CountDocuments(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": total})
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	finalPath := util.SafeJoin(dstDir, fh.Filename)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return finalPath, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"message": msg},
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
