package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lexrag/internal/ingestion"
	"lexrag/internal/models"
	"lexrag/internal/providers"
)

// FallbackAnswer is returned verbatim when retrieval finds nothing. The
// LLM is never called in that case, so it cannot invent citations.
const FallbackAnswer = "I could not find anything relevant to your question in the available documents. " +
	"Please rephrase the question or upload the document it concerns."

// Retriever is the hybrid search surface the pipeline consumes.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error)
}

// QueryLogger records each answered query for audit. Logging failures
// must not fail the answer, so implementations are called best-effort.
type QueryLogger interface {
	Append(ctx context.Context, queryText, language string) error
}

// Answer is the pipeline's response: generated text plus the retrieved
// chunks it was grounded on, in citation order.
type Answer struct {
	Text      string                  `json:"text"`
	Language  string                  `json:"language"`
	Citations []models.RetrievedChunk `json:"citations"`
}

// Pipeline wires retrieval, generation and audit logging into the one
// Ask operation the API exposes.
type Pipeline struct {
	retriever   Retriever
	llm         providers.LLMProvider
	queryLog    QueryLogger
	log         *zap.SugaredLogger
	defaultLang string
	topK        int
}

type PipelineOptions struct {
	Retriever   Retriever
	LLM         providers.LLMProvider
	QueryLog    QueryLogger
	Log         *zap.SugaredLogger
	DefaultLang string
	TopK        int
}

func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Retriever == nil {
		return nil, fmt.Errorf("pipeline needs a retriever")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("pipeline needs an llm provider")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.DefaultLang == "" {
		opts.DefaultLang = "en"
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &Pipeline{
		retriever:   opts.Retriever,
		llm:         opts.LLM,
		queryLog:    opts.QueryLog,
		log:         opts.Log,
		defaultLang: opts.DefaultLang,
		topK:        opts.TopK,
	}, nil
}

// Ask answers a user question against the hybrid index. The retrieved
// chunks become numbered context blocks in the prompt; the model is
// instructed to cite them by number. One audit row is appended per
// answered query, fallback included; queries that fail before an
// answer exists are not logged.
func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("empty question")
	}
	lang := ingestion.DetectLanguage(question, p.defaultLang)

	chunks, err := p.retriever.Search(ctx, question, p.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	if len(chunks) == 0 {
		p.log.Infow("no retrieval hits, returning fallback", "language", lang)
		p.logQuery(ctx, question, lang)
		return Answer{Text: FallbackAnswer, Language: lang}, nil
	}

	resp, info, err := p.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "legal_qa",
		Prompt:    buildPrompt(question, lang, chunks),
		Context:   chunkTexts(chunks),
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	p.log.Infow("answered query",
		"language", lang,
		"chunks", len(chunks),
		"provider", info.Name,
		"model", info.Model)
	p.logQuery(ctx, question, lang)
	return Answer{Text: resp.Text, Language: lang, Citations: chunks}, nil
}

// logQuery appends the audit row best-effort; a failed write never
// fails the answer.
func (p *Pipeline) logQuery(ctx context.Context, question, lang string) {
	if p.queryLog == nil {
		return
	}
	if err := p.queryLog.Append(ctx, question, lang); err != nil {
		p.log.Warnw("append query log", "error", err)
	}
}

func buildPrompt(question, lang string, chunks []models.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are a legal assistant. Answer using only the context blocks below. ")
	b.WriteString("Cite the blocks you rely on by their number, like [1]. ")
	b.WriteString("If the context does not answer the question, say so plainly.\n")
	if lang == "hi" {
		b.WriteString("Answer in Hindi.\n")
	}
	b.WriteString("\nContext:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] (%s) %s\n\n", i+1, c.Source, c.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func chunkTexts(chunks []models.RetrievedChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
