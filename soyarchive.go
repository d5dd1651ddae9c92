package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// runRecord is the archived form of a reasoning run.
type runRecord struct {
	ID               string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	RunID            string    `db:"run_id" type:"uuid" constraints:"notnull,unique"`
	Workspace        string    `db:"workspace_id" type:"text" constraints:"notnull"`
	Agent            string    `db:"agent_id" type:"text" constraints:"notnull"`
	Objective        string    `db:"objective" type:"text" constraints:"notnull"`
	Status           string    `db:"status" type:"text" constraints:"notnull"`
	FinalRisk        int       `db:"final_risk" type:"integer" constraints:"notnull"`
	FinalUncertainty int       `db:"final_uncertainty" type:"integer" constraints:"notnull"`
	DurationMS       int64     `db:"duration_ms" type:"bigint" constraints:"notnull"`
	Decision         string    `db:"decision" type:"jsonb" constraints:"notnull"`
	Created          time.Time `db:"created" type:"timestamp" constraints:"notnull"`
}

// passRecord is the archived form of one pass output.
type passRecord struct {
	ID          string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	RunID       string    `db:"run_id" type:"uuid" constraints:"notnull"`
	Ordinal     int       `db:"ordinal" type:"integer" constraints:"notnull"`
	Stage       string    `db:"stage" type:"text" constraints:"notnull"`
	Content     string    `db:"content" type:"jsonb" constraints:"notnull"`
	Uncertainty int       `db:"uncertainty" type:"integer" constraints:"notnull"`
	Risk        int       `db:"risk" type:"integer" constraints:"notnull"`
	Confidence  int       `db:"confidence" type:"integer" constraints:"notnull"`
	DurationMS  int64     `db:"duration_ms" type:"bigint" constraints:"notnull"`
	Created     time.Time `db:"created" type:"timestamp" constraints:"notnull"`
}

// SoyArchive implements Archiver using soy for PostgreSQL persistence.
// It writes one primary record per run and one record per pass.
type SoyArchive struct {
	runs   *soy.Soy[runRecord]
	passes *soy.Soy[passRecord]
	db     *sqlx.DB
}

// NewSoyArchive creates a soy-backed archive bridge.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	runs, err := soy.New[runRecord](db, "reasoning_runs", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reasoning_runs table: %w", err)
	}

	passes, err := soy.New[passRecord](db, "reasoning_passes", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reasoning_passes table: %w", err)
	}

	return &SoyArchive{
		runs:   runs,
		passes: passes,
		db:     db,
	}, nil
}

// Archive persists a terminal run and returns the record IDs. The run
// must already be closed; archiving an open run is a programmer error.
func (a *SoyArchive) Archive(ctx context.Context, run *ReasoningRun) (*ArchiveReceipt, error) {
	if run.Status != StatusCompleted && run.Status != StatusHalted {
		return nil, fmt.Errorf("cannot archive run %s: not in a terminal state", run.ID)
	}

	decision, err := json.Marshal(run.Decision)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decision: %w", err)
	}

	now := time.Now()
	primary, err := a.runs.Insert().Exec(ctx, &runRecord{
		RunID:            run.ID,
		Workspace:        run.Workspace,
		Agent:            run.Agent,
		Objective:        run.Objective,
		Status:           string(run.Status),
		FinalRisk:        run.FinalRisk,
		FinalUncertainty: run.FinalUncertainty,
		DurationMS:       run.Duration.Milliseconds(),
		Decision:         string(decision),
		Created:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert run record: %w", err)
	}

	receipt := &ArchiveReceipt{
		PrimaryRecordID: primary.ID,
		StageRecordIDs:  make([]string, 0, len(run.Passes)),
	}

	for _, pass := range run.Passes {
		content, err := MarshalStageContent(pass.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pass %d content: %w", pass.Ordinal, err)
		}
		record, err := a.passes.Insert().Exec(ctx, &passRecord{
			RunID:       run.ID,
			Ordinal:     pass.Ordinal,
			Stage:       string(pass.Stage),
			Content:     string(content),
			Uncertainty: pass.Uncertainty,
			Risk:        pass.Risk,
			Confidence:  pass.Confidence,
			DurationMS:  pass.Duration.Milliseconds(),
			Created:     now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to insert pass record %d: %w", pass.Ordinal, err)
		}
		receipt.StageRecordIDs = append(receipt.StageRecordIDs, record.ID)
	}

	return receipt, nil
}

// Close closes the underlying database connection.
func (a *SoyArchive) Close() error {
	return a.db.Close()
}

var _ Archiver = (*SoyArchive)(nil)
