// enrichment_store.go keeps what each instrumented run was doing, so a failure
// reported at the runner boundary can say which agent, tool, or model was active.

package agentssdk

import "sync"

// DefaultHistorySize bounds the operation history kept per run.
const DefaultHistorySize = 10

// Enrichment is the per-run state collected by HookAdapter. WrappedRunner
// turns it into agent.* params and history.N session vars.
type Enrichment struct {
	AgentName string
	Model     string
	Provider  string

	ToolName   string
	ToolCallID string

	// Operation is OperationLLM or OperationTool for the most recent step.
	Operation   string
	OperationID string

	// History lists the most recent operations, oldest first.
	History []OperationRecord
}

// clone copies e, including its history.
func (e *Enrichment) clone() Enrichment {
	out := *e
	if e.History != nil {
		out.History = append([]OperationRecord(nil), e.History...)
	}
	return out
}

// EnrichmentStore holds Enrichment by run ID. Implementations must be safe
// for concurrent use.
type EnrichmentStore interface {
	// Update applies fn to the enrichment for runID, creating it if needed.
	// fn runs under the store's lock and must not call back into the store.
	Update(runID string, fn func(e *Enrichment))

	// Get returns a copy of the enrichment for runID.
	Get(runID string) (Enrichment, bool)

	// Delete drops the enrichment for runID.
	Delete(runID string)
}

type memoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Enrichment
}

// NewEnrichmentStore returns an in-memory EnrichmentStore.
func NewEnrichmentStore() EnrichmentStore {
	return &memoryStore{runs: make(map[string]*Enrichment)}
}

func (s *memoryStore) Update(runID string, fn func(e *Enrichment)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.runs[runID]
	if e == nil {
		e = &Enrichment{}
		s.runs[runID] = e
	}
	fn(e)
}

func (s *memoryStore) Get(runID string) (Enrichment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.runs[runID]
	if e == nil {
		return Enrichment{}, false
	}
	return e.clone(), true
}

func (s *memoryStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}
