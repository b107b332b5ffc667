// Package eval provides test helpers for grading model reports with an
// LLM-as-judge.
package eval

import (
	"os"
	"testing"

	"github.com/fwojciec/changescope"
)

// EnvVar opts into evaluations, which call real model APIs.
const EnvVar = "GOEVALS"

// Eval provides assertion helpers for LLM-based test evaluation.
type Eval struct {
	judge changescope.RubricJudge
}

// New creates a new Eval with the given judge.
func New(judge changescope.RubricJudge) *Eval {
	return &Eval{judge: judge}
}

// AssertRubric evaluates whether the output satisfies the given criterion.
// If the criterion is not satisfied, the test is marked as failed.
func (e *Eval) AssertRubric(tb testing.TB, criterion, output string) bool {
	tb.Helper()

	result, err := e.judge.Judge(tb.Context(), criterion, output)
	if err != nil {
		tb.Errorf("rubric evaluation failed: %v", err)
		return false
	}

	if !result.Passed {
		tb.Errorf("rubric criterion not satisfied: %q\nReasoning: %s", criterion, result.Reasoning)
		return false
	}
	return true
}

// AssertRubrics evaluates every criterion against output and reports
// whether all were satisfied.
func (e *Eval) AssertRubrics(tb testing.TB, output string, criteria ...string) bool {
	tb.Helper()

	ok := true
	for _, c := range criteria {
		if !e.AssertRubric(tb, c, output) {
			ok = false
		}
	}
	return ok
}

// SkipUnlessEvals skips the test unless GOEVALS environment variable is set.
// Use at the start of eval tests to make them opt-in.
func SkipUnlessEvals(tb testing.TB) {
	tb.Helper()
	if os.Getenv(EnvVar) == "" {
		tb.Skip(EnvVar + " not set")
	}
}
