package arbiter

import (
	"fmt"
	"strings"
)

// Stage prompts embed the prior stage's structured output as JSON, so
// each stage reasons over exactly what its predecessor produced.

const reasoningSystemPrompt = `You are the reasoning stage of an autonomous decision pipeline. ` +
	`Work only from the objective and the structured context you are given. ` +
	`Be explicit about gaps and assumptions; never invent evidence.`

func analysisPrompt(objective string, recall RecallContent) string {
	var b strings.Builder
	b.WriteString("Objective: ")
	b.WriteString(objective)
	b.WriteString("\n\nRecalled context (JSON):\n")
	writeContentJSON(&b, recall)
	b.WriteString("\n\nAnalyze the objective against this context. ")
	b.WriteString("Identify patterns, information gaps, and risk factors that bear on the decision. ")
	b.WriteString("Finish with a line of the form \"Uncertainty: N\" where N is 0-100, ")
	b.WriteString("your estimate of how unsettled this analysis still is.")
	return b.String()
}

func draftPrompt(objective string, analysis AnalysisContent) string {
	var b strings.Builder
	b.WriteString("Objective: ")
	b.WriteString(objective)
	b.WriteString("\n\nAnalysis (JSON):\n")
	writeContentJSON(&b, analysis)
	b.WriteString("\n\nProduce a first solution that resolves the objective, ")
	b.WriteString("addressing the gaps and risk factors the analysis identified.")
	return b.String()
}

func refinementPrompt(draft DraftContent) string {
	var b strings.Builder
	b.WriteString("Draft solution (JSON):\n")
	writeContentJSON(&b, draft)
	b.WriteString("\n\nImprove this draft: tighten the reasoning, resolve weak points, ")
	b.WriteString("and remove anything not supported by the recalled context.")
	return b.String()
}

func validationPrompt(objective string, refinement RefinementContent) string {
	var b strings.Builder
	b.WriteString("Objective: ")
	b.WriteString(objective)
	b.WriteString("\n\nRefined solution (JSON):\n")
	writeContentJSON(&b, refinement)
	b.WriteString("\n\nCheck this solution for correctness, safety, and feasibility ")
	b.WriteString("against the objective. State what holds and what does not. ")
	b.WriteString("Finish with a line of the form \"Approval rating: N\" where N is 0-100.")
	return b.String()
}

func writeContentJSON(b *strings.Builder, c StageContent) {
	raw, err := MarshalStageContent(c)
	if err != nil {
		// Content variants are plain data; marshalling only fails on
		// programmer error. Degrade to a readable placeholder.
		fmt.Fprintf(b, "{%q: %q}", "kind", c.Kind())
		return
	}
	b.Write(raw)
}
