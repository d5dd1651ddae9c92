// Package arbitertest provides test utilities for arbiter.
package arbitertest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/zoobzio/arbiter"
	"github.com/zoobzio/zyn"
)

// MockStore implements arbiter.Store for testing without a database.
type MockStore struct {
	mu      sync.RWMutex
	items   map[string]arbiter.KnowledgeItem
	order   []string
	related []arbiter.RelatedItem
	signals []arbiter.Signal
	links   []arbiter.Link
}

// NewMockStore creates an empty in-memory mock for arbiter.Store.
func NewMockStore() *MockStore {
	return &MockStore{items: make(map[string]arbiter.KnowledgeItem)}
}

// AddItem stores a knowledge item, assigning an ID when absent, and
// returns the ID.
func (m *MockStore) AddItem(item arbiter.KnowledgeItem) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, exists := m.items[item.ID]; !exists {
		m.order = append(m.order, item.ID)
	}
	m.items[item.ID] = item
	return item.ID
}

// AddRelated attaches a one-hop related item to every retrieval.
func (m *MockStore) AddRelated(rel arbiter.RelatedItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.related = append(m.related, rel)
}

// AddSignal attaches a signal to a stored item.
func (m *MockStore) AddSignal(sig arbiter.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	m.signals = append(m.signals, sig)
}

// AddLink records a relationship between two stored items.
func (m *MockStore) AddLink(link arbiter.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	m.links = append(m.links, link)
}

// Retrieve returns the stored items for the workspace in insertion order.
func (m *MockStore) Retrieve(_ context.Context, q arbiter.RetrieveQuery) (*arbiter.RetrieveResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := &arbiter.RetrieveResult{}
	for _, id := range m.order {
		item := m.items[id]
		if q.Workspace != "" && item.Workspace != q.Workspace {
			continue
		}
		if item.Importance < q.MinImportance || item.Confidence < q.MinConfidence {
			continue
		}
		result.Items = append(result.Items, item)
		if q.Limit > 0 && len(result.Items) == q.Limit {
			break
		}
	}
	if q.IncludeRelated {
		result.Related = append(result.Related, m.related...)
	}
	return result, nil
}

// Items loads the given items by ID. Unknown IDs are omitted.
func (m *MockStore) Items(_ context.Context, ids []string) ([]arbiter.KnowledgeItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []arbiter.KnowledgeItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// UnresolvedSignals returns the unresolved signals attached to the given
// items.
func (m *MockStore) UnresolvedSignals(_ context.Context, itemIDs []string) ([]arbiter.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = struct{}{}
	}
	var signals []arbiter.Signal
	for _, sig := range m.signals {
		if sig.Resolved {
			continue
		}
		if _, ok := want[sig.ItemID]; ok {
			signals = append(signals, sig)
		}
	}
	return signals, nil
}

// Links returns relationships originating from the given items, filtered
// to the supplied relationship labels.
func (m *MockStore) Links(_ context.Context, itemIDs []string, relationships []string) ([]arbiter.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		from[id] = struct{}{}
	}
	rels := make(map[string]struct{}, len(relationships))
	for _, rel := range relationships {
		rels[rel] = struct{}{}
	}

	var links []arbiter.Link
	for _, link := range m.links {
		if _, ok := from[link.FromID]; !ok {
			continue
		}
		if len(relationships) > 0 {
			if _, ok := rels[link.Relationship]; !ok {
				continue
			}
		}
		links = append(links, link)
	}
	return links, nil
}

// Verify MockStore implements arbiter.Store.
var _ arbiter.Store = (*MockStore)(nil)

// ScriptedProvider implements arbiter.Provider with canned responses,
// served in order. When the script runs out, the last response repeats.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

// NewScriptedProvider creates a provider that serves the given responses
// in order.
func NewScriptedProvider(responses ...string) *ScriptedProvider {
	if len(responses) == 0 {
		responses = []string{"ok"}
	}
	return &ScriptedProvider{responses: responses}
}

// Call returns the next scripted response.
func (p *ScriptedProvider) Call(_ context.Context, _ []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	return &zyn.ProviderResponse{
		Content: p.responses[i],
		Usage:   zyn.TokenUsage{Prompt: 100, Completion: 50, Total: 150},
	}, nil
}

// Name identifies the provider.
func (p *ScriptedProvider) Name() string { return "scripted" }

// Calls reports how many generation calls were made.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Verify ScriptedProvider implements arbiter.Provider.
var _ arbiter.Provider = (*ScriptedProvider)(nil)

// RunPipeline executes one reasoning run against the given store and
// provider, failing the test on error.
func RunPipeline(t *testing.T, store arbiter.Store, provider arbiter.Provider, req arbiter.Request) *arbiter.ReasoningRun {
	t.Helper()

	engine := arbiter.NewEngine(store, provider)
	run, err := engine.ExecuteReasoning(context.Background(), req)
	if err != nil {
		t.Fatalf("reasoning run failed: %v", err)
	}
	return run
}

// RequireStatus asserts the run's terminal status.
func RequireStatus(t *testing.T, run *arbiter.ReasoningRun, want arbiter.Status) {
	t.Helper()
	if run.Status != want {
		t.Fatalf("expected status %s, got %s", want, run.Status)
	}
}

// RequirePass asserts that the given stage ran and returns its output.
func RequirePass(t *testing.T, run *arbiter.ReasoningRun, stage arbiter.Stage) arbiter.PassOutput {
	t.Helper()
	pass, ok := run.Pass(stage)
	if !ok {
		t.Fatalf("expected a %s pass, run has %d passes", stage, len(run.Passes))
	}
	return pass
}
