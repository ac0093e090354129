package sentiment

import "errors"

// ErrInvalidInput is returned when the feedback text is missing.
var ErrInvalidInput = errors.New("invalid input: feedback text is required")

// Sentiment is the polarity assigned to a piece of feedback.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Sentiments lists every sentiment label in display order.
var Sentiments = []Sentiment{Positive, Neutral, Negative}

// Valid reports whether s is one of the known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Negative, Neutral:
		return true
	}
	return false
}

// Language is the detected language of the feedback text.
type Language string

const (
	Amharic Language = "amharic"
	English Language = "english"
)

// Category is a coarse issue tag.
type Category string

const (
	WaitingTime       Category = "waiting_time"
	StaffBehavior     Category = "staff_behavior"
	Corruption        Category = "corruption"
	FacilityCondition Category = "facility_condition"
	ProcessComplexity Category = "process_complexity"
)

// Label returns a human-readable name, e.g. "Waiting time".
func (c Category) Label() string {
	s := string(c)
	if s == "" {
		return ""
	}
	out := []byte(s)
	for i := range out {
		if out[i] == '_' {
			out[i] = ' '
		}
	}
	if out[0] >= 'a' && out[0] <= 'z' {
		out[0] -= 'a' - 'A'
	}
	return string(out)
}

// Score is the output of the keyword classifier.
type Score struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
}

// Record is the classification of a single feedback text.
// Category is nil when no category keyword matched.
type Record struct {
	Sentiment  Sentiment `json:"sentiment"`
	Category   *Category `json:"category"`
	Confidence float64   `json:"confidence"`
	Language   Language  `json:"language"`
}
