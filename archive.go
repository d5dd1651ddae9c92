package arbiter

import "context"

// ArchiveReceipt identifies the records an archiver wrote for one run.
type ArchiveReceipt struct {
	PrimaryRecordID string   `json:"primary_record_id"`
	StageRecordIDs  []string `json:"stage_record_ids"`
}

// Archiver is the audit/persistence boundary for finished runs.
//
// The engine calls Archive at most once per run, after the run reaches a
// terminal state, and does not wait for it: archival failure is logged and
// swallowed, never surfaced to the ExecuteReasoning caller, because the
// reasoning result is already finalized and correct independent of whether
// it was archived.
type Archiver interface {
	Archive(ctx context.Context, run *ReasoningRun) (*ArchiveReceipt, error)
}
