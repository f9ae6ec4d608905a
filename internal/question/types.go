package question

import "time"

// Difficulty constants.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Type constants. Short-answer entries are judged by the host, not
// auto-compared, since numeric answers allow formatting variance.
const (
	TypeMCQ       = "mcq"
	TypeTrueFalse = "truefalse"
	TypeShort     = "short"
)

// Question is a single quiz item as delivered to the arena. Answer and
// Explanation stay server-side until the host reveals them.
type Question struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	TimeLimit   int      `json:"time_limit,omitempty"` // seconds; 0 means room default
	ImageURL    string   `json:"image_url,omitempty"`
}

// Round groups questions for one stage of a live show.
type Round struct {
	Number      int        `json:"number"`
	Description string     `json:"description,omitempty"`
	Problems    []Question `json:"problems"`
}

// Set is a stored exam set owned by a teacher.
type Set struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	Title     string    `json:"title"`
	Topic     string    `json:"topic"`
	Grade     string    `json:"grade"`
	Subject   string    `json:"subject"`
	Rounds    []Round   `json:"rounds"`
	CreatedAt time.Time `json:"created_at"`
}

// Questions flattens the set's rounds into one ordered sequence.
func (s *Set) Questions() []Question {
	var out []Question
	for _, r := range s.Rounds {
		out = append(out, r.Problems...)
	}
	return out
}
