package explore

// Step identifies a position in the guided flow. Steps are a fixed ordered
// list; navigation is gated by Validate on the way forward and free on the
// way back.
type Step int

const (
	StepSelection Step = iota
	StepStrengthFirst
	StepStoryBackground
	StepStoryAction
	StepStrengthSecond
	StepComplete
)

// StepCount is the number of steps in the flow.
const StepCount = 6

var stepNames = [StepCount]string{
	"selection",
	"strength-1",
	"story-background",
	"story-action",
	"strength-2",
	"complete",
}

var stepTitles = [StepCount]string{
	"My emotion cards",
	"Emotion strength (first)",
	"Story: background",
	"Story: action",
	"Emotion strength (second)",
	"Thank yourself",
}

// String returns the short step name used in CLI output and tool arguments.
func (s Step) String() string {
	if !s.Known() {
		return "unknown"
	}
	return stepNames[s]
}

// Title returns the display title for the step.
func (s Step) Title() string {
	if !s.Known() {
		return "Unknown"
	}
	return stepTitles[s]
}

// Known reports whether the step index is within the fixed list.
func (s Step) Known() bool {
	return s >= 0 && s < StepCount
}

// ParseStep converts a short step name into a Step.
func ParseStep(name string) (Step, bool) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), true
		}
	}
	return 0, false
}
