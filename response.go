package attest

import (
	"slices"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/router"
	"github.com/poiesic/attest/verify"
)

// Status is the terminal state of a question.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusDegraded Status = "DEGRADED"
)

// DegradedVerification is reported when no claim could be classified.
const DegradedVerification = "verification"

// AskOptions adjusts a single question.
type AskOptions struct {
	// AllowedDocIDs restricts retrieval to these documents. Nil allows
	// every document of the session; an empty slice allows none.
	AllowedDocIDs []string

	ForceOrchestrator   bool
	DisableOrchestrator bool
	SkipVerification    bool
}

// Response is the verified answer to a question.
type Response struct {
	Question        string                    `json:"question"`
	Answer          string                    `json:"answer"`
	AnnotatedAnswer string                    `json:"annotated_answer"`
	Sources         []string                  `json:"sources"`
	Route           router.Route              `json:"route"`
	Routing         router.Decision           `json:"routing"`
	Status          Status                    `json:"status"`
	Verification    []core.VerificationResult `json:"verification"`
	Summary         verify.Summary            `json:"summary"`
	Badges          []verify.Badge            `json:"badges,omitempty"`
	SubQuestions    []core.SubQuestion        `json:"sub_questions,omitempty"`
	Evidence        []core.EvidenceItem       `json:"evidence,omitempty"`
	Trajectory      []core.TrajectoryStep     `json:"trajectory"`
	FellBack        bool                      `json:"fell_back,omitempty"`
	Degradations    []string                  `json:"degradations,omitempty"`
}

// Degraded reports whether any stage of the question failed.
func (r *Response) Degraded() bool {
	return r.Status == StatusDegraded
}

func (r *Response) degrade(stages ...string) {
	for _, s := range stages {
		r.Status = StatusDegraded
		if !slices.Contains(r.Degradations, s) {
			r.Degradations = append(r.Degradations, s)
		}
	}
}
