package arbiter

import (
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/zyn"
)

// Stage identifies one of the five fixed steps of the reasoning pipeline.
type Stage string

// The pipeline stages, strictly ordered. A run visits them in sequence
// with no branching or skipping; the only exceptional exit is a risk halt
// after recall.
const (
	StageRecall     Stage = "recall"
	StageAnalysis   Stage = "analysis"
	StageDraft      Stage = "draft"
	StageRefinement Stage = "refinement"
	StageValidation Stage = "validation"
)

// Ordinal returns the 1-based position of the stage in the pipeline,
// or 0 for an unknown stage.
func (s Stage) Ordinal() int {
	switch s {
	case StageRecall:
		return 1
	case StageAnalysis:
		return 2
	case StageDraft:
		return 3
	case StageRefinement:
		return 4
	case StageValidation:
		return 5
	default:
		return 0
	}
}

// Status is the terminal state of a reasoning run.
type Status string

const (
	// StatusCompleted means all five stages executed.
	StatusCompleted Status = "completed"

	// StatusHalted means the run was terminated by the risk circuit
	// breaker after recall. A halt is a successful outcome, not an
	// error; callers must branch on status.
	StatusHalted Status = "halted"
)

// Artifact is a typed sub-result attached to a pass output, carrying a
// 0-100 quality score.
type Artifact struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Quality int    `json:"quality"`
}

// PassOutput is the result of one pipeline stage. Uncertainty, risk, and
// confidence are all clamped to [0, 100] before the pass is appended.
type PassOutput struct {
	Ordinal     int           `json:"ordinal"`
	Stage       Stage         `json:"stage"`
	Content     StageContent  `json:"content"`
	Uncertainty int           `json:"uncertainty"`
	Risk        int           `json:"risk"`
	Confidence  int           `json:"confidence"`
	Duration    time.Duration `json:"duration"`
	Artifacts   []Artifact    `json:"artifacts,omitempty"`
}

// Decision is the final payload of a run. Completed runs carry the
// validation content; halted runs carry a halt reason instead. The
// uncertainty here is the propagated value, which supersedes the raw
// stage-5 uncertainty as authoritative.
type Decision struct {
	Validation  *ValidationContent `json:"validation,omitempty"`
	HaltReason  string             `json:"halt_reason,omitempty"`
	Confidence  int                `json:"confidence"`
	Uncertainty int                `json:"uncertainty"`
	Risk        int                `json:"risk"`
	Level       RiskLevel          `json:"risk_level"`
}

// ReasoningRun is one execution of the pipeline for one objective.
//
// A run is exclusively owned by its ExecuteReasoning invocation: passes
// are appended by the engine while the run is open, and the run is closed
// exactly once, either after validation or upon an early halt. After close
// the run is handed to the Archiver but never mutated again, so concurrent
// runs share no mutable state.
type ReasoningRun struct {
	ID               string        `json:"id"`
	Workspace        string        `json:"workspace"`
	Agent            string        `json:"agent"`
	Objective        string        `json:"objective"`
	Passes           []PassOutput  `json:"passes"`
	Decision         *Decision     `json:"decision,omitempty"`
	FinalRisk        int           `json:"final_risk"`
	FinalUncertainty int           `json:"final_uncertainty"`
	Duration         time.Duration `json:"duration"`
	Status           Status        `json:"status,omitempty"`

	// LLM conversation state shared across stages 2-5 (not archived).
	session *zyn.Session

	started time.Time
	closed  bool
}

// newRun creates an open run for the given request.
func newRun(req Request) *ReasoningRun {
	return &ReasoningRun{
		ID:        uuid.New().String(),
		Workspace: req.Workspace,
		Agent:     req.Agent,
		Objective: req.Objective,
		Passes:    make([]PassOutput, 0, 5),
		session:   zyn.NewSession(),
		started:   time.Now(),
	}
}

// appendPass clamps the pass scores, assigns the next ordinal, and appends
// the pass. Ordinals are strictly increasing 1..5 by construction.
func (r *ReasoningRun) appendPass(p PassOutput) error {
	if r.closed {
		return ErrRunClosed
	}
	p.Ordinal = len(r.Passes) + 1
	p.Uncertainty = clamp100(p.Uncertainty)
	p.Risk = clamp100(p.Risk)
	p.Confidence = clamp100(p.Confidence)
	r.Passes = append(r.Passes, p)
	return nil
}

// close applies a terminal status. A run closes exactly once.
func (r *ReasoningRun) close(status Status, decision Decision, finalRisk, finalUncertainty int) error {
	if r.closed {
		return ErrRunClosed
	}
	r.closed = true
	r.Status = status
	r.Decision = &decision
	r.FinalRisk = clamp100(finalRisk)
	r.FinalUncertainty = clamp100(finalUncertainty)
	r.Duration = time.Since(r.started)
	return nil
}

// lastPass returns the most recently appended pass.
func (r *ReasoningRun) lastPass() (PassOutput, bool) {
	if len(r.Passes) == 0 {
		return PassOutput{}, false
	}
	return r.Passes[len(r.Passes)-1], true
}

// Pass returns the output of the given stage, if that stage has run.
func (r *ReasoningRun) Pass(stage Stage) (PassOutput, bool) {
	for _, p := range r.Passes {
		if p.Stage == stage {
			return p, true
		}
	}
	return PassOutput{}, false
}
