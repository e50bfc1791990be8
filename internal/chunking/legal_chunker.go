package chunking

import (
	"fmt"
	"regexp"
	"strings"

	"lexrag/internal/models"
)

// TokenCounter measures the token budget of a piece of text. Any
// deterministic counter works as long as the same one is used for every
// budget decision on a chunker instance.
type TokenCounter func(text string) int

// WordTokens approximates model tokenization by whitespace-separated
// fields. Deterministic and cheap, which is all the packing loop needs.
func WordTokens(text string) int {
	return len(strings.Fields(text))
}

var sectionMarker = regexp.MustCompile(`(?i)\b(?:SECTION|CLAUSE)\s+\d+`)

// LegalChunker slices legal text into token-budgeted chunks without
// splitting section or clause boundaries. Chunks after the first carry
// a backward character overlap from their predecessor so retrieval does
// not lose context at chunk edges.
type LegalChunker struct {
	chunkSize    int
	chunkOverlap int
	countTokens  TokenCounter
}

// NewLegalChunker validates the configuration. chunkSize is a token
// budget, chunkOverlap a character count; both must be positive.
func NewLegalChunker(chunkSize, chunkOverlap int, counter TokenCounter) (*LegalChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap <= 0 {
		return nil, fmt.Errorf("chunk overlap must be positive, got %d", chunkOverlap)
	}
	if counter == nil {
		counter = WordTokens
	}
	return &LegalChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, countTokens: counter}, nil
}

// Chunk splits text into section-bounded chunks. Every returned chunk
// shares the same metadata map; callers must not mutate it afterwards.
func (c *LegalChunker) Chunk(text string, metadata map[string]any) []models.ChunkPayload {
	sections := splitSections(text)
	if len(sections) == 0 {
		return nil
	}

	packed := c.pack(sections)

	out := make([]models.ChunkPayload, 0, len(packed))
	for i, body := range packed {
		if i > 0 {
			// Overlap comes from the previous packed chunk, before that
			// chunk itself gained its own overlap prefix.
			body = tailRunes(packed[i-1], c.chunkOverlap) + "\n\n" + body
		}
		out = append(out, models.ChunkPayload{Text: body, Metadata: metadata})
	}
	return out
}

// splitSections partitions text at SECTION/CLAUSE markers. Each marker
// starts a new section with the marker as its first line; text before
// the first marker becomes a leading section.
func splitSections(text string) []string {
	starts := sectionMarker.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	sections := make([]string, 0, len(starts)+1)
	if lead := strings.TrimSpace(text[:starts[0][0]]); lead != "" {
		sections = append(sections, lead)
	}
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if sec := strings.TrimSpace(text[loc[0]:end]); sec != "" {
			sections = append(sections, sec)
		}
	}
	return sections
}

// pack greedily fills chunks up to the token budget, one whole section
// at a time. A single section over budget becomes its own oversized
// chunk rather than being split mid-section.
func (c *LegalChunker) pack(sections []string) []string {
	chunks := make([]string, 0, len(sections))
	var current strings.Builder
	currentTokens := 0

	for _, section := range sections {
		sectionTokens := c.countTokens(section)
		if current.Len() > 0 && currentTokens+sectionTokens > c.chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(section)
		currentTokens += sectionTokens
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// tailRunes returns the last n runes of s, or all of s when it is
// shorter than n.
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
