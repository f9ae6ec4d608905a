package arena

import (
	"time"

	"github.com/hvtran/goldenbell/internal/question"
)

// Session status lifecycle states. Answering is a sub-state of playing,
// surfaced to clients whenever the buzzer slot is held.
const (
	StatusLobby      = "lobby"
	StatusPlaying    = "playing"
	StatusAnswering  = "answering"
	StatusExplaining = "explaining"
	StatusFinished   = "finished"
)

// Participant status within a question round.
const (
	ParticipantOnline    = "online"
	ParticipantAnswering = "answering"
	ParticipantCorrect   = "correct"
	ParticipantWrong     = "wrong"
)

// Explanation routing modes. Cosmetic only, no state-machine effect.
const (
	ExplanationText       = "text"
	ExplanationWhiteboard = "whiteboard"
	ExplanationVoice      = "voice"
)

// Rules fixes the gameplay policy for a whole match. ContinueAfterWrong
// selects the relay variant: a wrong answer locks that participant out and
// resumes the clock so others may still buzz; a correct answer clears the
// buzzer and play continues. When false, the first correct answer moves the
// session to explaining.
type Rules struct {
	ContinueAfterWrong     bool
	CorrectAward           int
	WrongPenalty           int
	DefaultQuestionSeconds int
}

// DefaultRules returns the classroom defaults (+100 / -50, 40s questions).
func DefaultRules() Rules {
	return Rules{
		ContinueAfterWrong:     true,
		CorrectAward:           100,
		WrongPenalty:           50,
		DefaultQuestionSeconds: 40,
	}
}

// Participant is one student in a room. ID is the presence key
// `{displayName}_{suffix}`; the server never derives the display name by
// splitting the key, it stores both separately.
type Participant struct {
	ID                   string
	DisplayName          string
	Score                int
	Status               string
	LockedOutForQuestion bool
	SelectedOption       int // -1 when nothing selected
	JoinedAt             time.Time

	// Answers records the submitted answer per question index for the
	// host's history table. Session-local, never persisted.
	Answers map[int]string
}

// GameSession is the authoritative state owned by the session actor.
// Exactly one goroutine mutates it; everyone else sees snapshots.
type GameSession struct {
	RoomCode             string
	Status               string
	CurrentQuestionIndex int // -1 before the match starts
	Questions            []question.Question
	TimerRemaining       int
	TimerRunning         bool
	BuzzedParticipantID  string
	ExplanationMode      string
	WhiteboardActive     bool
	Rules                Rules

	Participants map[string]*Participant
	joinOrder    []string
}

func newGameSession(roomCode string, rules Rules) GameSession {
	return GameSession{
		RoomCode:             roomCode,
		Status:               StatusLobby,
		CurrentQuestionIndex: -1,
		ExplanationMode:      ExplanationText,
		Rules:                rules,
		Participants:         make(map[string]*Participant),
	}
}

// currentQuestion returns the active question, or nil outside a match.
func (g *GameSession) currentQuestion() *question.Question {
	if g.CurrentQuestionIndex < 0 || g.CurrentQuestionIndex >= len(g.Questions) {
		return nil
	}
	return &g.Questions[g.CurrentQuestionIndex]
}

// questionSeconds resolves the per-question duration, falling back to the
// match default when the question carries no limit of its own.
func (g *GameSession) questionSeconds() int {
	if q := g.currentQuestion(); q != nil && q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return g.Rules.DefaultQuestionSeconds
}
