package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"atomic/internal/document"
	"atomic/internal/shell"

	"github.com/sirupsen/logrus"
)

const DefaultMaxDepth = 32

var (
	ErrNotFound = errors.New("command not found")
	ErrCircular = errors.New("circular command reference")
)

// CircularError carries the chain of names that led back to an active name
// or past the depth limit.
type CircularError struct {
	Chain []string
}

func (e *CircularError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCircular, strings.Join(e.Chain, " -> "))
}

func (e *CircularError) Unwrap() error { return ErrCircular }

// Executor runs one literal shell command.
type Executor interface {
	Execute(ctx context.Context, literal string) shell.Outcome
}

// Report collects what happened during one top-level run.
type Report struct {
	Name     string
	Outcomes []shell.Outcome
	// Errors holds nested entries that could not be interpreted; the
	// surrounding sequence kept going.
	Errors []error
}

// OK reports whether every step succeeded and no entry was malformed.
func (r *Report) OK() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that did not succeed.
func (r *Report) Failed() []shell.Outcome {
	var out []shell.Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Runner resolves names against one document and executes their plans.
type Runner struct {
	doc      *document.Document
	exec     Executor
	logger   *logrus.Logger
	maxDepth int
}

type Option func(*Runner)

// WithMaxDepth bounds how many nested command references a run may follow.
func WithMaxDepth(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

func NewRunner(doc *document.Document, exec Executor, logger *logrus.Logger, opts ...Option) *Runner {
	r := &Runner{
		doc:      doc,
		exec:     exec,
		logger:   logger,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan resolves name to its plan without running anything.
func (r *Runner) Plan(name string) (Plan, error) {
	m, ok := Lookup(r.doc, name)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return Interpret(m)
}

// Run executes the command called name. Individual step failures do not stop
// the sequence; they are collected in the report. The returned error is set
// when name is unknown or malformed, when a circular reference is found, or
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, name string) (*Report, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return nil, err
	}
	rep := &Report{Name: name}
	r.logger.Infof("run %s (%s, %d steps)", plan.Path, plan.Kind, len(plan.Steps))
	if err := r.runPlan(ctx, plan, []string{name}, rep); err != nil {
		return rep, err
	}
	return rep, nil
}

func (r *Runner) runPlan(ctx context.Context, plan Plan, stack []string, rep *Report) error {
	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch step.Kind {
		case StepLiteral:
			rep.Outcomes = append(rep.Outcomes, r.exec.Execute(ctx, step.Text))
		case StepResolve:
			if err := r.resolveStep(ctx, step.Text, stack, rep); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveStep runs text as a configured command if it names one, otherwise
// as shell text.
func (r *Runner) resolveStep(ctx context.Context, text string, stack []string, rep *Report) error {
	m, ok := Lookup(r.doc, text)
	if !ok || !m.IsCommand() {
		rep.Outcomes = append(rep.Outcomes, r.exec.Execute(ctx, text))
		return nil
	}

	next := append(slices.Clip(stack), text)
	if slices.Contains(stack, text) || len(next) > r.maxDepth {
		return &CircularError{Chain: next}
	}

	plan, err := Interpret(m)
	if err != nil {
		r.logger.Errorf("skip %s: %v", text, err)
		rep.Errors = append(rep.Errors, err)
		return nil
	}
	r.logger.Debugf("resolve %s -> %s (%s)", text, plan.Path, plan.Kind)
	return r.runPlan(ctx, plan, next, rep)
}

// Tree renders the plan for name with nested references expanded, without
// executing anything.
func (r *Runner) Tree(name string) (string, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", plan.Path, plan.Kind)
	if err := r.writeTree(&b, plan, []string{name}, 1); err != nil {
		return b.String(), err
	}
	return b.String(), nil
}

func (r *Runner) writeTree(b *strings.Builder, plan Plan, stack []string, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, step := range plan.Steps {
		label := step.Text
		if step.Role != "" {
			label = step.Role + ": " + label
		}
		if step.Kind == StepLiteral {
			fmt.Fprintf(b, "%s$ %s\n", indent, label)
			continue
		}
		m, ok := Lookup(r.doc, step.Text)
		if !ok || !m.IsCommand() {
			fmt.Fprintf(b, "%s$ %s\n", indent, label)
			continue
		}
		next := append(slices.Clip(stack), step.Text)
		if slices.Contains(stack, step.Text) || len(next) > r.maxDepth {
			return &CircularError{Chain: next}
		}
		nested, err := Interpret(m)
		if err != nil {
			fmt.Fprintf(b, "%s! %s: %v\n", indent, step.Text, err)
			continue
		}
		fmt.Fprintf(b, "%s%s -> %s (%s)\n", indent, step.Text, nested.Path, nested.Kind)
		if err := r.writeTree(b, nested, next, depth+1); err != nil {
			return err
		}
	}
	return nil
}
