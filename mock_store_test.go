package arbiter

import (
	"context"
	"sync"
)

// mockStore implements Store for testing without a database.
type mockStore struct {
	items   []KnowledgeItem
	related []RelatedItem
	signals []Signal
	links   []Link

	retrieveErr error
	itemsErr    error
	signalsErr  error
	linksErr    error

	mu            sync.Mutex
	retrieveCalls int
}

func (m *mockStore) Retrieve(_ context.Context, q RetrieveQuery) (*RetrieveResult, error) {
	m.mu.Lock()
	m.retrieveCalls++
	m.mu.Unlock()

	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}

	items := m.items
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	result := &RetrieveResult{Items: items}
	if q.IncludeRelated {
		result.Related = m.related
	}
	return result, nil
}

func (m *mockStore) Items(_ context.Context, ids []string) ([]KnowledgeItem, error) {
	if m.itemsErr != nil {
		return nil, m.itemsErr
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var items []KnowledgeItem
	for _, item := range m.items {
		if _, ok := want[item.ID]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockStore) UnresolvedSignals(_ context.Context, itemIDs []string) ([]Signal, error) {
	if m.signalsErr != nil {
		return nil, m.signalsErr
	}
	want := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = struct{}{}
	}
	var signals []Signal
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

func (m *mockStore) Links(_ context.Context, itemIDs []string, relationships []string) ([]Link, error) {
	if m.linksErr != nil {
		return nil, m.linksErr
	}
	from := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		from[id] = struct{}{}
	}
	rels := make(map[string]struct{}, len(relationships))
	for _, rel := range relationships {
		rels[rel] = struct{}{}
	}
	var links []Link
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

var _ Store = (*mockStore)(nil)

// mockArchiver records archived runs and signals completion.
type mockArchiver struct {
	err  error
	mu   sync.Mutex
	runs []*ReasoningRun
	done chan struct{}
}

func newMockArchiver() *mockArchiver {
	return &mockArchiver{done: make(chan struct{}, 1)}
}

func (m *mockArchiver) Archive(_ context.Context, run *ReasoningRun) (*ArchiveReceipt, error) {
	m.mu.Lock()
	m.runs = append(m.runs, run)
	m.mu.Unlock()

	defer func() { m.done <- struct{}{} }()

	if m.err != nil {
		return nil, m.err
	}
	receipt := &ArchiveReceipt{PrimaryRecordID: "record-" + run.ID}
	for range run.Passes {
		receipt.StageRecordIDs = append(receipt.StageRecordIDs, "stage-record")
	}
	return receipt, nil
}

func (m *mockArchiver) archived() []*ReasoningRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ReasoningRun, len(m.runs))
	copy(out, m.runs)
	return out
}

var _ Archiver = (*mockArchiver)(nil)
