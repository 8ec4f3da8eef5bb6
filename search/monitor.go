package search

import (
	"github.com/poiesic/attest/core"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(results []core.RankedResult, err error)
	AfterKeywordSearch(results []core.RankedResult)
	AfterFusion(results []core.FusedResult)
	AfterRerank(results []core.RerankedResult)
	RerankSkipped(err error)
	Finish(retrieval *Retrieval)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                               {}
func (n *noopMonitor) AfterVectorSearch(_ []core.RankedResult, _ error) {}
func (n *noopMonitor) AfterKeywordSearch(_ []core.RankedResult)     {}
func (n *noopMonitor) AfterFusion(_ []core.FusedResult)             {}
func (n *noopMonitor) AfterRerank(_ []core.RerankedResult)          {}
func (n *noopMonitor) RerankSkipped(_ error)                        {}
func (n *noopMonitor) Finish(_ *Retrieval)                          {}
