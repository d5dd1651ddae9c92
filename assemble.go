package arbiter

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

// Signals at or above this magnitude are surfaced as risk-factor labels;
// weaker ones become uncertainty notes instead.
const signalRiskThreshold = 60

// Items below this confidence contribute an uncertainty note.
const lowConfidenceThreshold = 50

// Default cap on primary items per retrieval.
const defaultRetrieveLimit = 10

// ContextPacket is the compact bundle of prior knowledge handed into a
// stage. It is ephemeral: built per stage, consumed by prompts and the
// risk model, never persisted on its own.
type ContextPacket struct {
	Primary          []KnowledgeItem `json:"primary"`
	Related          []RelatedItem   `json:"related,omitempty"`
	UncertaintyNotes []string        `json:"uncertainty_notes,omitempty"`
	RiskFactors      []string        `json:"risk_factors,omitempty"`
	Summary          ContextSummary  `json:"summary"`
}

// ContextSummary is the packet's derived metadata.
type ContextSummary struct {
	ItemCount        int `json:"item_count"`
	MeanConfidence   int `json:"mean_confidence"`
	UncertaintyLevel int `json:"uncertainty_level"`
}

// Assembler retrieves prior knowledge for a stage and distills it into a
// ContextPacket.
type Assembler struct {
	store Store
	limit int
}

// NewAssembler creates an assembler over the given store.
func NewAssembler(store Store) *Assembler {
	return &Assembler{
		store: store,
		limit: defaultRetrieveLimit,
	}
}

// WithLimit caps the number of primary items retrieved per assembly.
func (a *Assembler) WithLimit(limit int) *Assembler {
	if limit > 0 {
		a.limit = limit
	}
	return a
}

// Assemble retrieves up to the configured number of primary items relevant
// to the query, including items one relationship hop away, and distills
// them into a packet.
//
// Per-item unresolved signals with magnitude at or above 60 become
// deduplicated risk-factor labels of the form "{signal_type} ({value})";
// weaker signals and low-confidence items become uncertainty notes. The
// summary carries the mean confidence over primary items (0 if none) and
// the derived uncertainty level.
//
// A store failure surfaces as a *RetrievalError: there is no silent
// empty-context fallback, because acting on no context is exactly the risk
// condition the risk model exists to catch.
func (a *Assembler) Assemble(ctx context.Context, workspace, query string, stage Stage) (*ContextPacket, error) {
	res, err := a.store.Retrieve(ctx, RetrieveQuery{
		Workspace:      workspace,
		Query:          query,
		Limit:          a.limit,
		IncludeRelated: true,
	})
	if err != nil {
		return nil, &RetrievalError{Workspace: workspace, Query: query, Err: err}
	}

	packet := &ContextPacket{
		Primary: res.Items,
		Related: res.Related,
	}

	if len(res.Items) > 0 {
		ids := make([]string, len(res.Items))
		for i, item := range res.Items {
			ids[i] = item.ID
		}
		signals, err := a.store.UnresolvedSignals(ctx, ids)
		if err != nil {
			return nil, &RetrievalError{Workspace: workspace, Query: query, Err: err}
		}

		seen := make(map[string]struct{})
		for _, sig := range signals {
			if sig.Magnitude >= signalRiskThreshold {
				label := fmt.Sprintf("%s (%d)", sig.Type, sig.Magnitude)
				if _, dup := seen[label]; dup {
					continue
				}
				seen[label] = struct{}{}
				packet.RiskFactors = append(packet.RiskFactors, label)
			} else {
				packet.UncertaintyNotes = append(packet.UncertaintyNotes,
					fmt.Sprintf("unresolved %s signal on item %s", sig.Type, sig.ItemID))
			}
		}
	}

	total := 0
	for _, item := range res.Items {
		total += item.Confidence
		if item.Confidence < lowConfidenceThreshold {
			packet.UncertaintyNotes = append(packet.UncertaintyNotes,
				fmt.Sprintf("low confidence (%d) in %s item %s", item.Confidence, item.Type, item.ID))
		}
	}

	meanConfidence := 0
	if len(res.Items) > 0 {
		meanConfidence = roundClamp100(float64(total) / float64(len(res.Items)))
	}

	notePenalty := 0
	if len(packet.UncertaintyNotes) > 0 {
		notePenalty = 20
	}

	packet.Summary = ContextSummary{
		ItemCount:        len(res.Items),
		MeanConfidence:   meanConfidence,
		UncertaintyLevel: clamp100(100 - meanConfidence - notePenalty),
	}

	capitan.Emit(ctx, ContextAssembled,
		FieldWorkspace.Field(workspace),
		FieldStage.Field(string(stage)),
		FieldItemCount.Field(packet.Summary.ItemCount),
		FieldRelatedCount.Field(len(packet.Related)),
		FieldRiskFactors.Field(len(packet.RiskFactors)),
		FieldMeanConfidence.Field(packet.Summary.MeanConfidence),
	)

	return packet, nil
}
