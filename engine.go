package arbiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// HaltRiskThreshold is the stage-1 risk score at or above which a run is
// halted before any generation cost is incurred. The halt is unconditional
// and not overridable by the caller.
const HaltRiskThreshold = 80

// Fixed per-stage scores and dividends.
const (
	recallUncertainty    = 40
	recallConfidence     = 60
	analysisConfidence   = 70
	draftConfidence      = 75
	refinementConfidence = 85
	refinementDividend   = 10
	validationDividend   = 5
)

// Request describes one reasoning invocation.
type Request struct {
	Workspace string
	Agent     string
	Objective string

	// SeedItems are caller-supplied knowledge item IDs unioned with the
	// retrieved context before risk scoring.
	SeedItems []string
}

// Engine is the pipeline orchestrator. It wires the assembler and risk
// model into stage 1, runs stages 2-5 as a pipz sequence of generation
// processors, and delegates the final uncertainty to the propagator.
//
// An Engine is safe for concurrent use: each ExecuteReasoning invocation
// owns its run exclusively, and the engine itself holds no per-run state.
type Engine struct {
	store       Store
	provider    Provider
	archiver    Archiver
	assembler   *Assembler
	risk        *RiskModel
	propagator  Propagator
	temperature float32

	pipeline pipz.Chainable[*ReasoningRun]
}

// Option configures an Engine.
type Option func(*Engine)

// WithArchiver sets the archive bridge for finished runs. Without one,
// runs are simply returned to the caller.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithTemperature sets the LLM temperature for stages 2-5.
func WithTemperature(temp float32) Option {
	return func(e *Engine) { e.temperature = temp }
}

// WithRetrievalLimit caps the primary items retrieved during recall.
func WithRetrievalLimit(limit int) Option {
	return func(e *Engine) { e.assembler = e.assembler.WithLimit(limit) }
}

// NewEngine creates an engine over the given store and provider.
func NewEngine(store Store, provider Provider, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		provider:    provider,
		assembler:   NewAssembler(store),
		risk:        NewRiskModel(store),
		propagator:  NewPropagator(),
		temperature: zyn.DefaultTemperatureDeterministic,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Stages 2-5. Strictly sequential: each stage's prompt is built
	// from the previous stage's content.
	e.pipeline = pipz.NewSequence(pipz.NewIdentity("reasoning", ""),
		pipz.Apply(pipz.NewIdentity(string(StageAnalysis), ""), e.runAnalysis),
		pipz.Apply(pipz.NewIdentity(string(StageDraft), ""), e.runDraft),
		pipz.Apply(pipz.NewIdentity(string(StageRefinement), ""), e.runRefinement),
		pipz.Apply(pipz.NewIdentity(string(StageValidation), ""), e.runValidation),
	)

	return e
}

// ExecuteReasoning runs the five-stage pipeline for the given request and
// returns the closed run.
//
// A stage-1 risk at or above HaltRiskThreshold returns a run with
// StatusHalted after exactly one pass; that is a successful outcome, not
// an error. Store failures surface as *RetrievalError and generation
// failures as *GenerationError; in both cases no run is returned - partial
// runs are never silently completed with stand-in content.
func (e *Engine) ExecuteReasoning(ctx context.Context, req Request) (*ReasoningRun, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	if e.provider == nil {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(req.Objective) == "" {
		return nil, errors.New("objective is required")
	}
	if req.Workspace == "" {
		return nil, errors.New("workspace is required")
	}

	run := newRun(req)
	run.session.Append("system", reasoningSystemPrompt)

	capitan.Emit(ctx, RunStarted,
		FieldRunID.Field(run.ID),
		FieldWorkspace.Field(run.Workspace),
		FieldAgent.Field(run.Agent),
		FieldObjective.Field(run.Objective),
	)

	initialRisk, err := e.runRecall(ctx, run, req.SeedItems)
	if err != nil {
		return nil, err
	}

	if initialRisk >= HaltRiskThreshold {
		return e.halt(ctx, run, initialRisk)
	}

	if _, err := e.pipeline.Process(ctx, run); err != nil {
		// pipz wraps processor errors; surface the typed failure.
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return nil, genErr
		}
		return nil, err
	}

	return e.complete(ctx, run)
}

// runRecall executes stage 1: context assembly, seed union, and the one
// and only risk computation of the run.
func (e *Engine) runRecall(ctx context.Context, run *ReasoningRun, seeds []string) (int, error) {
	start := time.Now()
	e.emitStageStarted(ctx, run, StageRecall)

	packet, err := e.assembler.Assemble(ctx, run.Workspace, run.Objective, StageRecall)
	if err != nil {
		e.emitStageFailed(ctx, run, StageRecall, start, err)
		return 0, err
	}

	itemIDs := unionItemIDs(packet.Primary, seeds)
	initialRisk, err := e.risk.AssessMemoryRisk(ctx, run.Workspace, itemIDs)
	if err != nil {
		e.emitStageFailed(ctx, run, StageRecall, start, err)
		return 0, err
	}

	capitan.Emit(ctx, RiskAssessed,
		FieldRunID.Field(run.ID),
		FieldWorkspace.Field(run.Workspace),
		FieldItemCount.Field(len(itemIDs)),
		FieldRisk.Field(initialRisk),
		FieldRiskLevel.Field(string(e.risk.ClassifyRisk(initialRisk))),
	)

	pass := PassOutput{
		Stage: StageRecall,
		Content: RecallContent{
			Context:     *packet,
			ItemIDs:     itemIDs,
			InitialRisk: initialRisk,
			RiskLevel:   e.risk.ClassifyRisk(initialRisk),
		},
		Uncertainty: recallUncertainty,
		Risk:        initialRisk,
		Confidence:  recallConfidence,
		Duration:    time.Since(start),
		Artifacts: []Artifact{{
			Type:    "context",
			Name:    "recalled_context",
			Quality: packet.Summary.MeanConfidence,
		}},
	}
	if err := run.appendPass(pass); err != nil {
		return 0, err
	}

	e.emitStageCompleted(ctx, run, StageRecall, start)
	return initialRisk, nil
}

// runAnalysis executes stage 2: pattern/gap synthesis with a self-reported
// uncertainty estimate. Risk carries over from recall unchanged - it is
// computed once; later stages refine understanding, not the evidentiary
// risk.
func (e *Engine) runAnalysis(ctx context.Context, run *ReasoningRun) (*ReasoningRun, error) {
	start := time.Now()
	e.emitStageStarted(ctx, run, StageAnalysis)

	prev, _ := run.lastPass()
	recall := prev.Content.(RecallContent)

	text, usage, err := e.generate(ctx, run, StageAnalysis, analysisPrompt(run.Objective, recall))
	if err != nil {
		e.emitStageFailed(ctx, run, StageAnalysis, start, err)
		return run, err
	}

	uncertainty := extractUncertainty(text)
	pass := PassOutput{
		Stage: StageAnalysis,
		Content: AnalysisContent{
			Text:            text,
			SelfUncertainty: uncertainty,
			Tokens:          usage,
		},
		Uncertainty: uncertainty,
		Risk:        prev.Risk,
		Confidence:  analysisConfidence,
		Duration:    time.Since(start),
		Artifacts: []Artifact{{
			Type:    "analysis",
			Name:    "objective_analysis",
			Quality: clamp100(100 - uncertainty),
		}},
	}
	if err := run.appendPass(pass); err != nil {
		return run, err
	}

	e.emitStageCompleted(ctx, run, StageAnalysis, start)
	return run, nil
}

// runDraft executes stage 3: the first solution. Uncertainty and risk
// carry over unchanged.
func (e *Engine) runDraft(ctx context.Context, run *ReasoningRun) (*ReasoningRun, error) {
	start := time.Now()
	e.emitStageStarted(ctx, run, StageDraft)

	prev, _ := run.lastPass()
	analysis := prev.Content.(AnalysisContent)

	text, usage, err := e.generate(ctx, run, StageDraft, draftPrompt(run.Objective, analysis))
	if err != nil {
		e.emitStageFailed(ctx, run, StageDraft, start, err)
		return run, err
	}

	pass := PassOutput{
		Stage:       StageDraft,
		Content:     DraftContent{Text: text, Tokens: usage},
		Uncertainty: prev.Uncertainty,
		Risk:        prev.Risk,
		Confidence:  draftConfidence,
		Duration:    time.Since(start),
		Artifacts: []Artifact{{
			Type:    "solution",
			Name:    "draft_solution",
			Quality: draftConfidence,
		}},
	}
	if err := run.appendPass(pass); err != nil {
		return run, err
	}

	e.emitStageCompleted(ctx, run, StageDraft, start)
	return run, nil
}

// runRefinement executes stage 4: improving the draft, with a fixed
// refinement dividend taken off the carried uncertainty.
func (e *Engine) runRefinement(ctx context.Context, run *ReasoningRun) (*ReasoningRun, error) {
	start := time.Now()
	e.emitStageStarted(ctx, run, StageRefinement)

	prev, _ := run.lastPass()
	draft := prev.Content.(DraftContent)

	text, usage, err := e.generate(ctx, run, StageRefinement, refinementPrompt(draft))
	if err != nil {
		e.emitStageFailed(ctx, run, StageRefinement, start, err)
		return run, err
	}

	uncertainty := prev.Uncertainty - refinementDividend
	if uncertainty < 0 {
		uncertainty = 0
	}

	pass := PassOutput{
		Stage:       StageRefinement,
		Content:     RefinementContent{Text: text, Tokens: usage},
		Uncertainty: uncertainty,
		Risk:        prev.Risk,
		Confidence:  refinementConfidence,
		Duration:    time.Since(start),
		Artifacts: []Artifact{{
			Type:    "solution",
			Name:    "refined_solution",
			Quality: refinementConfidence,
		}},
	}
	if err := run.appendPass(pass); err != nil {
		return run, err
	}

	e.emitStageCompleted(ctx, run, StageRefinement, start)
	return run, nil
}

// runValidation executes stage 5: the correctness/safety/feasibility
// check. Confidence comes from the parsed approval rating.
func (e *Engine) runValidation(ctx context.Context, run *ReasoningRun) (*ReasoningRun, error) {
	start := time.Now()
	e.emitStageStarted(ctx, run, StageValidation)

	prev, _ := run.lastPass()
	refinement := prev.Content.(RefinementContent)

	text, usage, err := e.generate(ctx, run, StageValidation, validationPrompt(run.Objective, refinement))
	if err != nil {
		e.emitStageFailed(ctx, run, StageValidation, start, err)
		return run, err
	}

	approval := extractApproval(text)
	uncertainty := prev.Uncertainty - validationDividend
	if uncertainty < 0 {
		uncertainty = 0
	}

	pass := PassOutput{
		Stage: StageValidation,
		Content: ValidationContent{
			Text:     text,
			Approval: approval,
			Tokens:   usage,
		},
		Uncertainty: uncertainty,
		Risk:        prev.Risk,
		Confidence:  approval,
		Duration:    time.Since(start),
		Artifacts: []Artifact{{
			Type:    "verdict",
			Name:    "validation_verdict",
			Quality: approval,
		}},
	}
	if err := run.appendPass(pass); err != nil {
		return run, err
	}

	e.emitStageCompleted(ctx, run, StageValidation, start)
	return run, nil
}

// generate performs one generative-service call within the run's session.
func (e *Engine) generate(ctx context.Context, run *ReasoningRun, stage Stage, prompt string) (string, zyn.TokenUsage, error) {
	run.session.Append("user", prompt)

	resp, err := e.provider.Call(ctx, run.session.Messages(), e.temperature)
	if err != nil {
		return "", zyn.TokenUsage{}, &GenerationError{Stage: stage, Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", resp.Usage, &GenerationError{Stage: stage, Err: errors.New("empty response")}
	}

	run.session.Append("assistant", resp.Content)
	return resp.Content, resp.Usage, nil
}

// halt closes the run after recall because the evidence is already judged
// too risky to act on. No further generative-service calls are spent.
func (e *Engine) halt(ctx context.Context, run *ReasoningRun, initialRisk int) (*ReasoningRun, error) {
	level := e.risk.ClassifyRisk(initialRisk)
	decision := Decision{
		HaltReason: fmt.Sprintf("halted by risk: initial memory risk %d (%s) meets the halt threshold %d",
			initialRisk, level, HaltRiskThreshold),
		Confidence:  recallConfidence,
		Uncertainty: recallUncertainty,
		Risk:        initialRisk,
		Level:       level,
	}
	if err := run.close(StatusHalted, decision, initialRisk, recallUncertainty); err != nil {
		return nil, err
	}

	capitan.Emit(ctx, RunHalted,
		FieldRunID.Field(run.ID),
		FieldWorkspace.Field(run.Workspace),
		FieldStatus.Field(string(run.Status)),
		FieldRisk.Field(initialRisk),
		FieldRiskLevel.Field(string(level)),
		FieldDuration.Field(run.Duration),
	)

	e.archiveAsync(run)
	return run, nil
}

// complete closes the run after validation. The propagated uncertainty
// supersedes the raw stage-5 value as authoritative.
func (e *Engine) complete(ctx context.Context, run *ReasoningRun) (*ReasoningRun, error) {
	propagated := e.propagator.Propagate(run.Passes)

	last, _ := run.lastPass()
	validation := last.Content.(ValidationContent)
	level := e.risk.ClassifyRisk(last.Risk)

	decision := Decision{
		Validation:  &validation,
		Confidence:  last.Confidence,
		Uncertainty: propagated,
		Risk:        last.Risk,
		Level:       level,
	}
	if err := run.close(StatusCompleted, decision, last.Risk, propagated); err != nil {
		return nil, err
	}

	capitan.Emit(ctx, RunCompleted,
		FieldRunID.Field(run.ID),
		FieldWorkspace.Field(run.Workspace),
		FieldStatus.Field(string(run.Status)),
		FieldRisk.Field(run.FinalRisk),
		FieldUncertainty.Field(run.FinalUncertainty),
		FieldConfidence.Field(decision.Confidence),
		FieldDuration.Field(run.Duration),
	)

	e.archiveAsync(run)
	return run, nil
}

// archiveAsync hands the closed run to the archive bridge without blocking
// the caller's receipt of the result. Failure is logged and swallowed.
func (e *Engine) archiveAsync(run *ReasoningRun) {
	if e.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		receipt, err := e.archiver.Archive(ctx, run)
		if err != nil {
			capitan.Error(ctx, ArchiveFailed,
				FieldRunID.Field(run.ID),
				FieldError.Field(err),
			)
			return
		}
		capitan.Emit(ctx, ArchiveCompleted,
			FieldRunID.Field(run.ID),
			FieldRecordID.Field(receipt.PrimaryRecordID),
		)
	}()
}

func (e *Engine) emitStageStarted(ctx context.Context, run *ReasoningRun, stage Stage) {
	capitan.Emit(ctx, StageStarted,
		FieldRunID.Field(run.ID),
		FieldStage.Field(string(stage)),
		FieldOrdinal.Field(stage.Ordinal()),
	)
}

func (e *Engine) emitStageCompleted(ctx context.Context, run *ReasoningRun, stage Stage, start time.Time) {
	last, _ := run.lastPass()
	capitan.Emit(ctx, StageCompleted,
		FieldRunID.Field(run.ID),
		FieldStage.Field(string(stage)),
		FieldOrdinal.Field(stage.Ordinal()),
		FieldUncertainty.Field(last.Uncertainty),
		FieldRisk.Field(last.Risk),
		FieldConfidence.Field(last.Confidence),
		FieldDuration.Field(time.Since(start)),
	)
}

func (e *Engine) emitStageFailed(ctx context.Context, run *ReasoningRun, stage Stage, start time.Time, err error) {
	capitan.Error(ctx, StageFailed,
		FieldRunID.Field(run.ID),
		FieldStage.Field(string(stage)),
		FieldOrdinal.Field(stage.Ordinal()),
		FieldDuration.Field(time.Since(start)),
		FieldError.Field(err),
	)
}

// unionItemIDs merges retrieved item IDs with caller-supplied seeds,
// deduplicated, retrieval order first.
func unionItemIDs(items []KnowledgeItem, seeds []string) []string {
	seen := make(map[string]struct{}, len(items)+len(seeds))
	ids := make([]string, 0, len(items)+len(seeds))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	for _, id := range seeds {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
