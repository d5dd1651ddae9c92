package arbiter

import "github.com/zoobzio/capitan"

// Signal definitions for reasoning pipeline events.
// Signals follow the pattern: arbiter.<entity>.<event>.
var (
	// Run lifecycle signals.
	RunStarted = capitan.NewSignal(
		"arbiter.run.started",
		"Reasoning run began executing its staged pipeline",
	)
	RunCompleted = capitan.NewSignal(
		"arbiter.run.completed",
		"Reasoning run finished all five stages with a validated decision",
	)
	RunHalted = capitan.NewSignal(
		"arbiter.run.halted",
		"Reasoning run terminated by the risk circuit breaker after recall",
	)

	// Stage execution signals.
	StageStarted = capitan.NewSignal(
		"arbiter.stage.started",
		"Pipeline stage began execution",
	)
	StageCompleted = capitan.NewSignal(
		"arbiter.stage.completed",
		"Pipeline stage finished successfully",
	)
	StageFailed = capitan.NewSignal(
		"arbiter.stage.failed",
		"Pipeline stage encountered an error",
	)

	// Context assembly signals.
	ContextAssembled = capitan.NewSignal(
		"arbiter.context.assembled",
		"Prior knowledge retrieved and distilled into a context packet",
	)

	// Risk signals.
	RiskAssessed = capitan.NewSignal(
		"arbiter.risk.assessed",
		"Risk model produced a score for a run or item set",
	)

	// Archival signals.
	ArchiveCompleted = capitan.NewSignal(
		"arbiter.archive.completed",
		"Completed run persisted by the archive bridge",
	)
	ArchiveFailed = capitan.NewSignal(
		"arbiter.archive.failed",
		"Archive bridge failed; the reasoning result is unaffected",
	)
)

// Field keys for arbiter event data.
var (
	// Run metadata.
	FieldRunID     = capitan.NewStringKey("run_id")
	FieldWorkspace = capitan.NewStringKey("workspace")
	FieldAgent     = capitan.NewStringKey("agent")
	FieldObjective = capitan.NewStringKey("objective")
	FieldStatus    = capitan.NewStringKey("status")

	// Stage metadata.
	FieldStage   = capitan.NewStringKey("stage") // recall, analysis, draft, refinement, validation
	FieldOrdinal = capitan.NewIntKey("ordinal")

	// Scores.
	FieldRisk        = capitan.NewIntKey("risk")
	FieldRiskLevel   = capitan.NewStringKey("risk_level")
	FieldUncertainty = capitan.NewIntKey("uncertainty")
	FieldConfidence  = capitan.NewIntKey("confidence")

	// Context metrics.
	FieldItemCount      = capitan.NewIntKey("item_count")
	FieldRelatedCount   = capitan.NewIntKey("related_count")
	FieldRiskFactors    = capitan.NewIntKey("risk_factor_count")
	FieldMeanConfidence = capitan.NewIntKey("mean_confidence")

	// Timing.
	FieldDuration = capitan.NewDurationKey("duration")

	// Archival.
	FieldRecordID = capitan.NewStringKey("record_id")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
