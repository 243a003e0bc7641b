package command

import (
	"errors"
	"fmt"

	"atomic/internal/document"
)

// ErrUnsupportedFormat is returned for command values that are not a string,
// an array or a table.
var ErrUnsupportedFormat = errors.New("unsupported command format")

type PlanKind int

const (
	PlanLiteral PlanKind = iota
	PlanChain
	PlanHooks
)

func (k PlanKind) String() string {
	switch k {
	case PlanLiteral:
		return "literal"
	case PlanChain:
		return "chain"
	case PlanHooks:
		return "hooks"
	default:
		return "unknown"
	}
}

type StepKind int

const (
	// StepLiteral runs Text as-is.
	StepLiteral StepKind = iota
	// StepResolve looks Text up as a command name first and falls back to
	// running it as-is.
	StepResolve
)

// Step roles inside a hook table.
const (
	RoleBefore  = "before"
	RoleCommand = "command"
	RoleAfter   = "after"
)

type Step struct {
	Kind StepKind
	Text string
	Role string
}

// Plan is the ordered list of steps for one named entry.
type Plan struct {
	Kind  PlanKind
	Name  string
	Path  string
	Desc  string
	Steps []Step
}

// Interpret turns a matched value into a plan. It does not touch the
// filesystem or run anything.
func Interpret(m Match) (Plan, error) {
	plan := Plan{Name: m.Name, Path: m.KeyPath()}
	switch m.Value.Kind() {
	case document.String:
		s, _ := m.Value.AsString()
		plan.Kind = PlanLiteral
		plan.Steps = []Step{{Kind: StepLiteral, Text: s}}
		return plan, nil

	case document.Array:
		steps, err := chainSteps(plan.Path, m.Value)
		if err != nil {
			return Plan{}, err
		}
		plan.Kind = PlanChain
		plan.Steps = steps
		return plan, nil

	case document.TableKind:
		tbl, _ := m.Value.AsTable()
		return interpretTable(plan, tbl)

	default:
		return Plan{}, fmt.Errorf("%s: %w (%s)", plan.Path, ErrUnsupportedFormat, m.Value.Kind())
	}
}

func interpretTable(plan Plan, tbl *document.Table) (Plan, error) {
	if d, ok := tbl.Get("desc"); ok {
		plan.Desc, _ = d.AsString()
	}
	cmd, ok := tbl.Get(RoleCommand)
	if !ok {
		return Plan{}, &document.FieldError{Path: document.JoinPath(plan.Path, RoleCommand), Reason: "missing required key"}
	}

	switch cmd.Kind() {
	case document.Array:
		// An array command is a chain; before/after do not apply.
		steps, err := chainSteps(document.JoinPath(plan.Path, RoleCommand), cmd)
		if err != nil {
			return Plan{}, err
		}
		plan.Kind = PlanChain
		plan.Steps = steps
		return plan, nil
	case document.String:
	default:
		return Plan{}, &document.FieldError{
			Path:   document.JoinPath(plan.Path, RoleCommand),
			Reason: fmt.Sprintf("must be a string or array of strings, got %s", cmd.Kind()),
		}
	}

	plan.Kind = PlanHooks
	for _, role := range []string{RoleBefore, RoleCommand, RoleAfter} {
		v, ok := tbl.Get(role)
		if !ok {
			continue
		}
		s, ok := v.AsString()
		if !ok {
			return Plan{}, &document.FieldError{
				Path:   document.JoinPath(plan.Path, role),
				Reason: fmt.Sprintf("must be a string, got %s", v.Kind()),
			}
		}
		plan.Steps = append(plan.Steps, Step{Kind: StepLiteral, Text: s, Role: role})
	}
	return plan, nil
}

func chainSteps(path string, v document.Value) ([]Step, error) {
	items, bad, ok := v.Strings()
	if !ok {
		return nil, &document.FieldError{
			Path:   fmt.Sprintf("%s[%d]", path, bad),
			Reason: "chain elements must be strings",
		}
	}
	steps := make([]Step, 0, len(items))
	for _, item := range items {
		steps = append(steps, Step{Kind: StepResolve, Text: item})
	}
	return steps, nil
}
