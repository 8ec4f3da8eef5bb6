package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the identifier of a chunk from its position and content.
// The same document, page, index and text always map to the same ID.
func ChunkID(docID string, pageNum, chunkIndex int, text string) string {
	return fmt.Sprintf("%s-p%d-c%d-%016x", docID, pageNum, chunkIndex, uint64(IDFromContent(text)))
}

// Chunk is a bounded span of extracted document text used as the retrieval unit.
// Chunks are immutable once created during ingestion.
type Chunk struct {
	ID         string    `json:"id"`
	DocID      string    `json:"doc_id"`
	PageNum    int       `json:"page_num"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	SourceURI  string    `json:"source_uri,omitempty"`
	Vector     []float32 `json:"vector,omitempty"`
}

// RankedResult is one entry of a single retrieval method's result list.
// Rank is 1-based and unique within a list.
type RankedResult struct {
	ChunkID string  `json:"chunk_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

// FusedResult is a chunk's reciprocal rank fusion score across all input lists.
type FusedResult struct {
	ChunkID  string  `json:"chunk_id"`
	RRFScore float64 `json:"rrf_score"`
}

// ComponentScores holds the individual reranking signals for one candidate.
type ComponentScores struct {
	Semantic float64 `json:"semantic"`
	Jaccard  float64 `json:"jaccard"`
	Keyword  float64 `json:"keyword"`
	Phrase   float64 `json:"phrase"`
}

// RerankedResult is the combined reranking score of one candidate.
type RerankedResult struct {
	ChunkID    string          `json:"chunk_id"`
	FinalScore float64         `json:"final_score"`
	Components ComponentScores `json:"component_scores"`
}

// SubQuestionKind selects the evidence source used to resolve a sub-question.
type SubQuestionKind string

const (
	KindText  SubQuestionKind = "TEXT"
	KindTable SubQuestionKind = "TABLE"
)

// MaxSubQuestions bounds the length of a decomposition.
const MaxSubQuestions = 5

// SubQuestion is one decomposed piece of a complex query.
type SubQuestion struct {
	Text string          `json:"question"`
	Kind SubQuestionKind `json:"type"`
}

// TableRef identifies a table inside a document.
type TableRef struct {
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Table is a tabular dataset extracted from a document. Cells are kept as text.
type Table struct {
	Name    string     `json:"name"`
	DocID   string     `json:"doc_id"`
	Index   int        `json:"index"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Ref returns the reference for this table.
func (t *Table) Ref() TableRef {
	return TableRef{DocID: t.DocID, Index: t.Index, Name: t.Name}
}

// EvidenceItem is the resolved evidence for one sub-question.
// Text evidence carries Chunks, table evidence carries Tables.
type EvidenceItem struct {
	SubQuestion SubQuestion `json:"sub_question"`
	Answer      string      `json:"answer"`
	Chunks      []Chunk     `json:"source_chunks,omitempty"`
	Tables      []TableRef  `json:"source_tables,omitempty"`
	Failed      bool        `json:"failed,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// ClaimKind distinguishes claims carrying numbers or statistics from the rest.
type ClaimKind string

const (
	ClaimQuantitative ClaimKind = "quantitative"
	ClaimQualitative  ClaimKind = "qualitative"
)

// Claim is a checkable statement extracted from a generated answer.
type Claim struct {
	Text string    `json:"text"`
	Kind ClaimKind `json:"kind"`
}

// VerificationStatus is the outcome of checking a claim against evidence.
type VerificationStatus string

const (
	StatusSupports     VerificationStatus = "SUPPORTS"
	StatusRefutes      VerificationStatus = "REFUTES"
	StatusNotMentioned VerificationStatus = "NOT_MENTIONED"
)

// VerificationResult is the aggregated status of one claim.
// SupportingChunkID is empty when no chunk supports or refutes the claim.
type VerificationResult struct {
	Claim             Claim              `json:"claim"`
	Status            VerificationStatus `json:"status"`
	SupportingChunkID string             `json:"supporting_chunk_id,omitempty"`
}

// StepKind labels an entry in an orchestration trajectory.
type StepKind string

const (
	StepPlanning           StepKind = "planning"
	StepDecomposition      StepKind = "decomposition"
	StepRetrieval          StepKind = "retrieval"
	StepIntermediateAnswer StepKind = "intermediate_answer"
	StepSynthesis          StepKind = "synthesis"
	StepFallback           StepKind = "fallback"
	StepVerification       StepKind = "verification"
	StepVerificationResult StepKind = "verification_result"
	StepFinalAnswer        StepKind = "final_answer"
)

// TrajectoryStep records one observable step of query orchestration.
type TrajectoryStep struct {
	Kind    StepKind `json:"type"`
	Title   string   `json:"title"`
	Content string   `json:"content,omitempty"`
	Detail  string   `json:"details,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// Document records a source document ingested into a session.
type Document struct {
	ID         string    `json:"id"`
	SourceURI  string    `json:"source_uri,omitempty"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	Tables     int       `json:"tables"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SessionInfo summarizes a persisted session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Chunks    int       `json:"chunks"`
	Tables    int       `json:"tables"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
