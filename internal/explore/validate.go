package explore

import "fmt"

// Result is a step validator's verdict. Message is only set when invalid.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Validate decides whether the flow may advance past the given step.
//
// The selection step demands exactly MaxSelectedCards even though submission
// later tolerates 1-3: the guided flow wants a full hand, but cards removed
// after this gate don't invalidate the record. Unknown steps default to
// valid so a future step can never lock the wizard.
func Validate(s *State, step Step) Result {
	switch step {
	case StepSelection:
		n := len(s.SelectedCards)
		if n != MaxSelectedCards {
			return Result{Message: fmt.Sprintf("pick exactly %d cards to continue (have %d)", MaxSelectedCards, n)}
		}
		return Result{Valid: true}

	case StepStrengthFirst:
		for _, c := range s.SelectedCards {
			if _, ok := s.BeforeLevels[c.ID]; !ok {
				return Result{Message: fmt.Sprintf("rate every selected card first (missing %q)", c.Name)}
			}
		}
		return Result{Valid: true}

	default:
		// Story steps are optional; the second strength step is terminal and
		// never gates.
		return Result{Valid: true}
	}
}
