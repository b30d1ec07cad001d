package workflow

import (
	"errors"
	"fmt"
)

// Edge condition types carried for the backend; the canvas never evaluates them
const (
	EdgeConditionAlways = "always"
	EdgeConditionIf     = "if"
	EdgeConditionUnless = "unless"
)

// Edge is a directed connection between two nodes
type Edge struct {
	ID            EdgeID
	From          NodeID
	To            NodeID
	SourceOutput  string
	TargetInput   string
	ConditionType string
	Condition     string
}

// EdgePatch updates the advisory fields of an edge; nil fields are left alone
type EdgePatch struct {
	SourceOutput  *string
	TargetInput   *string
	ConditionType *string
	Condition     *string
}

// Validate checks the edge is structurally sound
func (e *Edge) Validate() error {
	if e.ID == "" {
		return errors.New("edge: empty edge ID")
	}
	if e.From == "" {
		return errors.New("edge: empty from node")
	}
	if e.To == "" {
		return errors.New("edge: empty to node")
	}
	if e.From == e.To {
		return fmt.Errorf("edge: self-loop detected (node %s to itself)", e.From)
	}
	switch e.ConditionType {
	case "", EdgeConditionAlways, EdgeConditionIf, EdgeConditionUnless:
	default:
		return fmt.Errorf("edge: unknown condition type %q", e.ConditionType)
	}
	if e.ConditionType == EdgeConditionIf || e.ConditionType == EdgeConditionUnless {
		if err := ValidateExpressionSyntax(e.Condition); err != nil {
			return fmt.Errorf("edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func (e *Edge) apply(p EdgePatch) {
	if p.SourceOutput != nil {
		e.SourceOutput = *p.SourceOutput
	}
	if p.TargetInput != nil {
		e.TargetInput = *p.TargetInput
	}
	if p.ConditionType != nil {
		e.ConditionType = *p.ConditionType
	}
	if p.Condition != nil {
		e.Condition = *p.Condition
	}
}
