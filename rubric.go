package changescope

import (
	"context"
	"fmt"
	"strings"
)

// RubricResult represents the outcome of an LLM-as-judge evaluation.
type RubricResult struct {
	Passed    bool   // Whether the output satisfied the criterion
	Reasoning string // LLM's explanation for the judgment
}

// RubricJudge evaluates text output against natural language criteria.
// Used for LLM-as-judge testing patterns.
type RubricJudge interface {
	// Judge evaluates whether the output satisfies the given criterion.
	Judge(ctx context.Context, criterion, output string) (*RubricResult, error)
}

var _ RubricJudge = (*AnalyzerJudge)(nil)

const judgePrompt = `You are evaluating the output of a code analysis tool.

Criterion:
%s

Output:
%s

Decide whether the output satisfies the criterion. Respond with a JSON object
{"passed": true or false, "reasoning": "<one or two sentences>"} and nothing else.`

// AnalyzerJudge implements RubricJudge by asking an Analyzer for a verdict.
type AnalyzerJudge struct {
	Analyzer   Analyzer
	Normalizer *Normalizer
}

// Judge asks the analyzer whether output satisfies criterion.
func (j *AnalyzerJudge) Judge(ctx context.Context, criterion, output string) (*RubricResult, error) {
	raw, err := j.Analyzer.Analyze(ctx, fmt.Sprintf(judgePrompt, criterion, output))
	if err != nil {
		return nil, fmt.Errorf("judging output: %w", err)
	}

	n := j.Normalizer
	if n == nil {
		n = &Normalizer{}
	}
	result := n.Normalize(raw)
	if !result.IsStructured() {
		return nil, fmt.Errorf("judge verdict is not JSON: %q", snippet(result.Raw))
	}

	passed, ok := result.Mapping.Get("passed")
	if !ok || passed.Kind != KindBool {
		return nil, fmt.Errorf("judge verdict has no boolean %q field", "passed")
	}
	reasoning, _ := result.Mapping.Get("reasoning")
	return &RubricResult{
		Passed:    passed.Text == "true",
		Reasoning: strings.TrimSpace(reasoning.String()),
	}, nil
}
