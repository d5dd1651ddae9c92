package arbiter

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAssembleEmptyStore(t *testing.T) {
	a := NewAssembler(&mockStore{})

	packet, err := a.Assemble(context.Background(), "ws", "query", StageRecall)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if len(packet.Primary) != 0 {
		t.Errorf("expected no primary items, got %d", len(packet.Primary))
	}
	if packet.Summary.ItemCount != 0 {
		t.Errorf("expected item count 0, got %d", packet.Summary.ItemCount)
	}
	if packet.Summary.MeanConfidence != 0 {
		t.Errorf("expected mean confidence 0, got %d", packet.Summary.MeanConfidence)
	}
	if packet.Summary.UncertaintyLevel != 100 {
		t.Errorf("expected uncertainty level 100, got %d", packet.Summary.UncertaintyLevel)
	}
}

func TestAssembleRiskFactorsAndNotes(t *testing.T) {
	store := &mockStore{
		items: []KnowledgeItem{
			{ID: "a", Workspace: "ws", Type: "fact", Confidence: 80},
			{ID: "b", Workspace: "ws", Type: "fact", Confidence: 20},
			{ID: "c", Workspace: "ws", Type: "observation", Confidence: 90},
		},
		signals: []Signal{
			{ID: "s1", ItemID: "a", Type: "contradiction", Magnitude: 65},
			{ID: "s2", ItemID: "c", Type: "contradiction", Magnitude: 65},
			{ID: "s3", ItemID: "b", Type: "staleness", Magnitude: 30},
		},
	}
	a := NewAssembler(store)

	packet, err := a.Assemble(context.Background(), "ws", "query", StageRecall)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	// Identical strong-signal labels deduplicate to one risk factor.
	if len(packet.RiskFactors) != 1 {
		t.Fatalf("expected 1 risk factor, got %v", packet.RiskFactors)
	}
	if packet.RiskFactors[0] != "contradiction (65)" {
		t.Errorf("unexpected risk factor label: %q", packet.RiskFactors[0])
	}

	// One note for the weak signal, one for the low-confidence item.
	if len(packet.UncertaintyNotes) != 2 {
		t.Fatalf("expected 2 uncertainty notes, got %v", packet.UncertaintyNotes)
	}
	if !strings.Contains(packet.UncertaintyNotes[0], "staleness") {
		t.Errorf("expected weak-signal note first, got %q", packet.UncertaintyNotes[0])
	}
	if !strings.Contains(packet.UncertaintyNotes[1], "low confidence (20)") {
		t.Errorf("expected low-confidence note, got %q", packet.UncertaintyNotes[1])
	}

	// Mean of 80, 20, 90 rounds to 63; notes subtract a further 20.
	if packet.Summary.MeanConfidence != 63 {
		t.Errorf("expected mean confidence 63, got %d", packet.Summary.MeanConfidence)
	}
	if packet.Summary.UncertaintyLevel != 17 {
		t.Errorf("expected uncertainty level 17, got %d", packet.Summary.UncertaintyLevel)
	}
}

func TestAssembleCleanContext(t *testing.T) {
	store := &mockStore{
		items: []KnowledgeItem{
			{ID: "a", Workspace: "ws", Type: "fact", Confidence: 90},
			{ID: "b", Workspace: "ws", Type: "fact", Confidence: 70},
		},
		related: []RelatedItem{
			{Item: KnowledgeItem{ID: "r1"}, Relationship: "supports", Strength: 60},
		},
	}
	a := NewAssembler(store)

	packet, err := a.Assemble(context.Background(), "ws", "query", StageRecall)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if len(packet.RiskFactors) != 0 || len(packet.UncertaintyNotes) != 0 {
		t.Errorf("clean context should carry no factors or notes: %+v", packet)
	}
	if len(packet.Related) != 1 {
		t.Errorf("expected related items to be included, got %d", len(packet.Related))
	}
	if packet.Summary.MeanConfidence != 80 {
		t.Errorf("expected mean confidence 80, got %d", packet.Summary.MeanConfidence)
	}
	if packet.Summary.UncertaintyLevel != 20 {
		t.Errorf("expected uncertainty level 20, got %d", packet.Summary.UncertaintyLevel)
	}
}

func TestAssembleLimit(t *testing.T) {
	store := &mockStore{
		items: []KnowledgeItem{
			{ID: "a", Confidence: 80},
			{ID: "b", Confidence: 80},
			{ID: "c", Confidence: 80},
		},
	}
	a := NewAssembler(store).WithLimit(1)

	packet, err := a.Assemble(context.Background(), "ws", "query", StageRecall)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(packet.Primary) != 1 {
		t.Errorf("expected retrieval capped at 1 item, got %d", len(packet.Primary))
	}
}

func TestAssembleStoreError(t *testing.T) {
	store := &mockStore{retrieveErr: errors.New("connection refused")}
	a := NewAssembler(store)

	_, err := a.Assemble(context.Background(), "ws", "query", StageRecall)
	if err == nil {
		t.Fatal("expected error from failing store")
	}

	var retrieveErr *RetrievalError
	if !errors.As(err, &retrieveErr) {
		t.Fatalf("expected *RetrievalError, got %T", err)
	}
	if retrieveErr.Workspace != "ws" || retrieveErr.Query != "query" {
		t.Errorf("unexpected error context: %+v", retrieveErr)
	}
}
