package explore

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/wavemo/wavemo/internal/errors"
)

// stateFileName is the fixed key for the durable in-progress workflow state.
const stateFileName = "explore.json"

// Store owns the in-progress workflow state. It is the single writer: all
// mutations go through its named actions, and every mutation rewrites the
// state file so a restart resumes exactly where the flow left off.
type Store struct {
	path       string
	state      State
	submitting atomic.Bool
}

// Open loads the workflow state from baseDir/explore.json, or starts a
// fresh flow if no state file exists.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	s := &Store{
		path:  filepath.Join(baseDir, stateFileName),
		state: NewState(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read workflow state: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("failed to parse workflow state: %w", err)
	}

	// A hand-edited or pre-upgrade file may omit the maps entirely.
	if s.state.SelectedCards == nil {
		s.state.SelectedCards = []SelectedCard{}
	}
	if s.state.BeforeLevels == nil {
		s.state.BeforeLevels = map[int]int{}
	}
	if s.state.AfterLevels == nil {
		s.state.AfterLevels = map[int]int{}
	}

	return s, nil
}

// State returns a deep copy of the current aggregate.
func (s *Store) State() State {
	return s.state.Clone()
}

// Step returns the current step.
func (s *Store) Step() Step {
	return s.state.Step
}

// AddCard inserts a card snapshot if not already selected and the selection
// is below the cap. Both the duplicate and over-cap cases are silent no-ops;
// callers that want a user-visible cap message check the size themselves.
func (s *Store) AddCard(card SelectedCard) error {
	if s.state.HasCard(card.ID) {
		return nil
	}
	if len(s.state.SelectedCards) >= MaxSelectedCards {
		return nil
	}
	s.state.SelectedCards = append(s.state.SelectedCards, card)
	return s.save()
}

// RemoveCard removes a card and both of its level entries. No-op if absent.
func (s *Store) RemoveCard(cardID int) error {
	if !s.state.HasCard(cardID) {
		return nil
	}
	kept := s.state.SelectedCards[:0]
	for _, c := range s.state.SelectedCards {
		if c.ID != cardID {
			kept = append(kept, c)
		}
	}
	s.state.SelectedCards = kept
	delete(s.state.BeforeLevels, cardID)
	delete(s.state.AfterLevels, cardID)
	return s.save()
}

// ClearCards empties the selection and both level maps. Narrative fields
// are untouched.
func (s *Store) ClearCards() error {
	s.state.SelectedCards = []SelectedCard{}
	s.state.BeforeLevels = map[int]int{}
	s.state.AfterLevels = map[int]int{}
	return s.save()
}

// SetBeforeLevel records the first strength rating for a selected card.
func (s *Store) SetBeforeLevel(cardID, level int) error {
	if err := s.checkLevel(cardID, level); err != nil {
		return err
	}
	s.state.BeforeLevels[cardID] = level
	return s.save()
}

// SetAfterLevel records the second strength rating for a selected card.
func (s *Store) SetAfterLevel(cardID, level int) error {
	if err := s.checkLevel(cardID, level); err != nil {
		return err
	}
	s.state.AfterLevels[cardID] = level
	return s.save()
}

// checkLevel enforces the level range and the selected-card invariant, so a
// level entry can never reference a card outside the selection.
func (s *Store) checkLevel(cardID, level int) error {
	if level < MinLevel || level > MaxLevel {
		return errors.NewInvalidRequest(fmt.Sprintf("level must be between %d and %d", MinLevel, MaxLevel))
	}
	if !s.state.HasCard(cardID) {
		return errors.NewInvalidRequest(fmt.Sprintf("card %d is not selected", cardID))
	}
	return nil
}

// SetStoryBackground sets the story background narrative.
func (s *Store) SetStoryBackground(value string) error {
	s.state.StoryBackground = value
	return s.save()
}

// SetStoryAction sets the "what did you do" narrative.
func (s *Store) SetStoryAction(value string) error {
	s.state.StoryAction = value
	return s.save()
}

// SetStoryResult sets the "what happened" narrative.
func (s *Store) SetStoryResult(value string) error {
	s.state.StoryResult = value
	return s.save()
}

// SetStoryFeeling sets the "how did that feel" narrative.
func (s *Store) SetStoryFeeling(value string) error {
	s.state.StoryFeeling = value
	return s.save()
}

// SetStoryExpect sets the tri-state "was the outcome expected" answer.
func (s *Store) SetStoryExpect(value Expectation) error {
	s.state.StoryExpect = value
	return s.save()
}

// SetStoryBetterAction sets the retrospective/self-affirmation narrative.
func (s *Store) SetStoryBetterAction(value string) error {
	s.state.StoryBetterAction = value
	return s.save()
}

// Next advances to the following step if the current step validates.
// A refused transition leaves the step unchanged and carries the
// validator's message.
func (s *Store) Next() error {
	if s.state.Step >= StepComplete {
		return errors.NewInvalidRequest("already at the final step")
	}
	if result := Validate(&s.state, s.state.Step); !result.Valid {
		return errors.NewStepIncomplete(result.Message)
	}
	s.state.Step++
	return s.save()
}

// Back retreats one step. No-op on the first step.
func (s *Store) Back() error {
	if s.state.Step <= StepSelection {
		return nil
	}
	s.state.Step--
	return s.save()
}

// JumpTo moves directly to an already-visited step. Jumping forward past
// the current position is never permitted, preserving the gating invariant.
func (s *Store) JumpTo(step Step) error {
	if !step.Known() {
		return errors.NewInvalidRequest(fmt.Sprintf("unknown step %d", step))
	}
	if step >= s.state.Step {
		return errors.NewInvalidRequest("can only jump back to an already-visited step")
	}
	s.state.Step = step
	return s.save()
}

// Reset restores the aggregate to its empty initial value. In the normal
// lifecycle this happens exactly once, immediately after a confirmed
// successful submission.
func (s *Store) Reset() error {
	s.state = NewState()
	return s.save()
}

// save rewrites the state file. Writes go through a temp file and rename so
// a crash mid-write never leaves a truncated state file.
func (s *Store) save() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write workflow state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace workflow state: %w", err)
	}
	return nil
}
