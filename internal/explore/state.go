// Package explore implements the guided emotion exploration workflow:
// the durable in-progress state, the per-step validation gates, the step
// sequencer, and the submission pipeline that turns a finished flow into a
// saved record.
package explore

// Selection and rating bounds.
const (
	// MaxSelectedCards caps the selection while editing; AddCard silently
	// no-ops beyond it.
	MaxSelectedCards = 3

	// MinSubmitCards is the looser submission-time floor. The selection-step
	// gate demands exactly MaxSelectedCards, but cards may be removed later,
	// so submission re-validates against 1-3 independently.
	MinSubmitCards = 1

	MinLevel = 1
	MaxLevel = 5
)

// SelectedCard is a snapshot of a catalog card captured at selection time.
// CategoryName is denormalized so display layers don't need a second
// catalog lookup.
type SelectedCard struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
	Description  string `json:"description,omitempty"`
	Example      string `json:"example,omitempty"`
	ImagePath    string `json:"image_path,omitempty"`
}

// State is the aggregate of everything the guided flow collects. It is
// mutated only through Store's named actions and persisted after every
// mutation.
type State struct {
	SelectedCards []SelectedCard `json:"selected_cards"`

	// BeforeLevels is the first strength rating (card id -> 1-5), required
	// before leaving the first strength step. AfterLevels is the second,
	// optional rating. Both only ever hold keys for selected cards.
	BeforeLevels map[int]int `json:"before_levels"`
	AfterLevels  map[int]int `json:"after_levels"`

	StoryBackground   string      `json:"story_background"`
	StoryAction       string      `json:"story_action"`
	StoryResult       string      `json:"story_result"`
	StoryFeeling      string      `json:"story_feeling"`
	StoryExpect       Expectation `json:"story_expect"`
	StoryBetterAction string      `json:"story_better_action"`

	Step Step `json:"step"`
}

// NewState returns the empty initial aggregate.
func NewState() State {
	return State{
		SelectedCards: []SelectedCard{},
		BeforeLevels:  map[int]int{},
		AfterLevels:   map[int]int{},
	}
}

// HasCard reports whether a card id is currently selected.
func (s State) HasCard(cardID int) bool {
	for _, c := range s.SelectedCards {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

// CardIDs returns the selected card ids in selection order.
func (s State) CardIDs() []int {
	ids := make([]int, 0, len(s.SelectedCards))
	for _, c := range s.SelectedCards {
		ids = append(ids, c.ID)
	}
	return ids
}

// Clone returns a deep copy of the aggregate.
func (s *State) Clone() State {
	out := *s
	out.SelectedCards = make([]SelectedCard, len(s.SelectedCards))
	copy(out.SelectedCards, s.SelectedCards)
	out.BeforeLevels = make(map[int]int, len(s.BeforeLevels))
	for k, v := range s.BeforeLevels {
		out.BeforeLevels[k] = v
	}
	out.AfterLevels = make(map[int]int, len(s.AfterLevels))
	for k, v := range s.AfterLevels {
		out.AfterLevels[k] = v
	}
	return out
}
