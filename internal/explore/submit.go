package explore

import (
	"context"

	"github.com/wavemo/wavemo/internal/errors"
)

// Submission is the record payload built from the workflow state at submit
// time. It is a transient projection: constructed, sent, and discarded.
// Card ids are order-significant (first element is card 1).
type Submission struct {
	Cards             []int       `json:"cards"`
	BeforeLevels      map[int]int `json:"beforeLevels"`
	AfterLevels       map[int]int `json:"afterLevels"`
	StoryBackground   string      `json:"storyBackground"`
	StoryAction       string      `json:"storyAction"`
	StoryResult       string      `json:"storyResult"`
	StoryFeeling      string      `json:"storyFeeling"`
	StoryExpect       Expectation `json:"storyExpect"`
	StoryBetterAction string      `json:"storyBetterAction"`
}

// Recorder persists a finished submission. Implemented by the local records
// store and by the HTTP client for a remote wavemo server.
type Recorder interface {
	CreateRecord(ctx context.Context, sub *Submission) error
}

// BuildSubmission projects the aggregate into a payload. The level maps are
// copied so the payload never aliases live workflow state.
func BuildSubmission(s *State) *Submission {
	sub := &Submission{
		Cards:             s.CardIDs(),
		BeforeLevels:      make(map[int]int, len(s.BeforeLevels)),
		AfterLevels:       make(map[int]int, len(s.AfterLevels)),
		StoryBackground:   s.StoryBackground,
		StoryAction:       s.StoryAction,
		StoryResult:       s.StoryResult,
		StoryFeeling:      s.StoryFeeling,
		StoryExpect:       s.StoryExpect,
		StoryBetterAction: s.StoryBetterAction,
	}
	for k, v := range s.BeforeLevels {
		sub.BeforeLevels[k] = v
	}
	for k, v := range s.AfterLevels {
		sub.AfterLevels[k] = v
	}
	return sub
}

// Submit sends the current workflow state to the recorder exactly once per
// call. Preconditions are checked before any I/O; a failed call leaves the
// aggregate completely unchanged so the user can retry without re-entering
// anything. Success triggers the lifecycle's single Reset.
func (s *Store) Submit(ctx context.Context, rec Recorder) error {
	if !s.submitting.CompareAndSwap(false, true) {
		return errors.NewSubmitInFlight()
	}
	defer s.submitting.Store(false)

	n := len(s.state.SelectedCards)
	if n < MinSubmitCards {
		return errors.NewSelectionTooSmall(MinSubmitCards, n)
	}
	if n > MaxSelectedCards {
		return errors.NewSelectionTooLarge(MaxSelectedCards, n)
	}

	sub := BuildSubmission(&s.state)
	if err := rec.CreateRecord(ctx, sub); err != nil {
		if wErr, ok := err.(*errors.WavemoError); ok {
			return wErr
		}
		return errors.NewSubmitFailed(err)
	}

	return s.Reset()
}
