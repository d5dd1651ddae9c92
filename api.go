// Package arbiter provides a staged, memory-grounded reasoning pipeline
// for Go, turning a natural-language objective into a validated decision
// with an auditable risk and uncertainty trail.
//
// arbiter exists so that autonomous agents can decide things ("should this
// message be sent", "what should this campaign do next") while tracking how
// confident the system should be in that decision and whether the decision
// is too risky to act on autonomously.
//
// # Core Types
//
// The package is built around four concepts:
//
//   - [ReasoningRun] - One execution of the pipeline for one objective
//   - [PassOutput] - The result of one pipeline stage
//   - [ContextPacket] - Prior knowledge distilled for a stage
//   - [RiskAssessment] - A weighted 0-100 risk score with a categorical level
//
// # The Pipeline
//
// [Engine.ExecuteReasoning] runs five fixed stages, strictly in order:
//
//	recall → analysis → draft → refinement → validation
//
// Stage 1 assembles context from the knowledge [Store] and scores the
// evidentiary risk of acting on it. If that risk is critical (≥ 80) the run
// halts immediately with [StatusHalted] - the pipeline's only circuit
// breaker, evaluated before any generation cost is incurred. Stages 2-5
// call the injected [Provider] to synthesize, draft, refine, and validate a
// solution, each stage updating the run's uncertainty bookkeeping.
//
// After validation, the [Propagator] folds the per-stage uncertainties into
// one final score using recency weighting and a confidence boost from the
// last stage. That propagated value, not the raw stage-5 uncertainty, is
// authoritative.
//
// # Scoring Components
//
// The arithmetic lives in three standalone components, usable without the
// engine:
//
//   - [RiskModel] - memory risk, reasoning risk, cumulative weighting,
//     and level classification
//   - [Propagator] - propagation, trend analysis, interim projection,
//     and high-uncertainty area identification
//   - [Assembler] - context retrieval and distillation
//
// All scores are clamped to [0, 100]. They are heuristic, not calibrated
// probabilities.
//
// # Collaborators
//
// The engine is constructed with its collaborators injected:
//
//	engine := arbiter.NewEngine(store, provider,
//	    arbiter.WithArchiver(archive),
//	)
//	run, err := engine.ExecuteReasoning(ctx, arbiter.Request{
//	    Workspace: "ws-1",
//	    Agent:     "campaign-agent",
//	    Objective: "Generate personalized email for high-value prospect",
//	})
//
// [Store] is the durable knowledge boundary; [SoyStore] implements it with
// soy over PostgreSQL, with optional pgvector ordering via an [Embedder].
// [Provider] is the generative text boundary, compatible with zyn
// providers. [Archiver] is the audit boundary; archival is fire-and-forget
// and never fails the reasoning call. [SoyArchive] implements it.
//
// # Failure Semantics
//
// Context-assembly failures surface as [*RetrievalError] and generation
// failures as [*GenerationError]; both are fatal to the run. A risk halt is
// not an error: the run returns normally with [StatusHalted] and a decision
// payload explaining the halt. Callers must branch on status.
//
// # Observability
//
// arbiter emits capitan signals throughout execution. See signals.go for
// the complete list, including RunStarted, StageCompleted, RunHalted,
// RiskAssessed, and ArchiveFailed.
package arbiter
