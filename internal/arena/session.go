package arena

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/question"
	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

// Validation failures surfaced by session operations. Only ErrNoParticipants
// is expected to reach the host operator as a blocking notice; the rest guard
// programming invariants at the WS boundary.
var (
	ErrNoParticipants     = errors.New("match needs at least one participant")
	ErrEmptyQuestionSet   = errors.New("question set is empty")
	ErrNotInLobby         = errors.New("session already started")
	ErrNotPlaying         = errors.New("session is not playing")
	ErrNotAnswering       = errors.New("participant is not answering")
	ErrMatchFinished      = errors.New("match is finished")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrSessionClosed      = errors.New("session closed")
)

// Publisher pushes a message to every replica in a room. Implemented by the
// Redis relay in production and by stubs in tests.
type Publisher interface {
	Publish(roomCode string, msg ws.Message)
}

// ScoreSink mirrors judged scores into external standings (Redis ZSET).
// Best-effort: the in-memory session stays the source of truth. Clear
// drops a room's standings when the room closes.
type ScoreSink interface {
	Record(roomCode, participantID, displayName string, score int)
	Clear(roomCode string)
}

type command struct {
	fn  func() error
	err chan error
}

// Session is the authoritative game state machine for one room, run as a
// single-goroutine actor. Timer ticks, student intents, and host commands
// all pass through one inbox, so the buzz check-and-set in receiveBuzz is
// atomic without any lock: arbitration order is inbox receipt order.
type Session struct {
	clock   clockwork.Clock
	logger  zerolog.Logger
	pub     Publisher
	scores  ScoreSink
	metrics *Metrics

	inbox chan command
	done  chan struct{}

	// Owned by the run loop.
	state     GameSession
	ticker    clockwork.Ticker
	bySubject map[string]string // token subject -> participant ID
}

// SessionOptions configures collaborators; zero values fall back to a real
// clock and no-op sinks.
type SessionOptions struct {
	Clock   clockwork.Clock
	Scores  ScoreSink
	Metrics *Metrics
}

// NewSession creates a session for a room in the lobby state. Run must be
// started before any operation is invoked.
func NewSession(roomCode string, rules Rules, pub Publisher, logger zerolog.Logger, opts SessionOptions) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rules.DefaultQuestionSeconds <= 0 {
		rules = DefaultRules()
	}
	return &Session{
		clock:     clock,
		logger:    logger.With().Str("component", "session").Str("room", roomCode).Logger(),
		pub:       pub,
		scores:    opts.Scores,
		metrics:   opts.Metrics,
		inbox:     make(chan command, 64),
		done:      make(chan struct{}),
		state:     newGameSession(roomCode, rules),
		bySubject: make(map[string]string),
	}
}

// Run processes the inbox until the context is cancelled. All state
// mutation happens on this goroutine.
func (s *Session) Run(ctx context.Context) {
	defer func() {
		s.stopTicker()
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.inbox:
			cmd.err <- cmd.fn()
		case <-s.tickChan():
			s.handleTick()
		}
	}
}

// do runs fn on the session goroutine and waits for its result.
func (s *Session) do(fn func() error) error {
	cmd := command{fn: fn, err: make(chan error, 1)}
	select {
	case s.inbox <- cmd:
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case err := <-cmd.err:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// RoomCode returns the room this session arbitrates.
func (s *Session) RoomCode() string { return s.state.RoomCode }

// Join registers a participant and returns its server-minted ID. Identity
// is keyed on the caller's token subject, never on anything the client
// supplies: a reconnect with the same subject is a rejoin that keeps score
// and round state, while a different subject always gets a fresh presence
// key even under an identical display name.
func (s *Session) Join(subjectID, displayName string) (string, error) {
	var assigned string
	err := s.do(func() error {
		if subjectID != "" {
			if id, ok := s.bySubject[subjectID]; ok {
				// Rejoin after a reconnect.
				assigned = id
				s.state.Participants[id].DisplayName = displayName
				s.broadcast()
				return nil
			}
		}
		assigned = presenceKey(displayName)
		p := &Participant{
			ID:             assigned,
			DisplayName:    displayName,
			Status:         ParticipantOnline,
			SelectedOption: -1,
			JoinedAt:       s.clock.Now(),
			Answers:        make(map[int]string),
		}
		s.state.Participants[assigned] = p
		s.state.joinOrder = append(s.state.joinOrder, assigned)
		if subjectID != "" {
			s.bySubject[subjectID] = assigned
		}
		s.logger.Info().Str("participant", assigned).Msg("participant joined")
		s.broadcast()
		return nil
	})
	return assigned, err
}

// Leave drops a participant from the roster. A held buzzer slot is
// released so the question does not dead-lock on a vanished student.
func (s *Session) Leave(id string) error {
	return s.do(func() error {
		if _, ok := s.state.Participants[id]; !ok {
			return nil
		}
		if s.state.BuzzedParticipantID == id {
			s.state.BuzzedParticipantID = ""
			s.resumeCountdown()
		}
		delete(s.state.Participants, id)
		for subject, pid := range s.bySubject {
			if pid == id {
				delete(s.bySubject, subject)
				break
			}
		}
		for i, pid := range s.state.joinOrder {
			if pid == id {
				s.state.joinOrder = append(s.state.joinOrder[:i], s.state.joinOrder[i+1:]...)
				break
			}
		}
		s.broadcast()
		return nil
	})
}

// StartMatch loads the question set, fixes the match rules, and moves the
// session to playing. Rejecting an empty roster is the one validation
// failure the host UI must surface as a blocking notice. Rules cannot
// change once the match is underway.
func (s *Session) StartMatch(questions []question.Question, rules Rules) error {
	return s.do(func() error {
		if s.state.Status != StatusLobby {
			return ErrNotInLobby
		}
		if len(s.state.Participants) == 0 {
			return ErrNoParticipants
		}
		if len(questions) == 0 {
			return ErrEmptyQuestionSet
		}
		if rules.DefaultQuestionSeconds > 0 {
			s.state.Rules = rules
		}
		s.state.Questions = questions
		s.state.Status = StatusPlaying
		s.state.CurrentQuestionIndex = 0
		s.resetQuestionState()
		if s.metrics != nil {
			s.metrics.MatchesStarted.Inc()
		}
		s.logger.Info().Int("questions", len(questions)).Msg("match started")
		s.broadcast()
		return nil
	})
}

// StartTimer begins the countdown for the current question. Requires an
// open buzzer slot; the clock never runs while someone is answering.
func (s *Session) StartTimer() error {
	return s.do(func() error {
		if s.state.Status != StatusPlaying {
			return ErrNotPlaying
		}
		if s.state.BuzzedParticipantID != "" {
			return ErrNotPlaying
		}
		if s.state.TimerRemaining <= 0 {
			s.state.TimerRemaining = s.state.questionSeconds()
		}
		s.state.TimerRunning = true
		s.startTicker()
		s.broadcast()
		return nil
	})
}

// PauseTimer halts the countdown without releasing the question. StartTimer
// resumes from the paused value.
func (s *Session) PauseTimer() error {
	return s.do(func() error {
		if s.state.Status != StatusPlaying {
			return ErrNotPlaying
		}
		s.pauseCountdown()
		s.broadcast()
		return nil
	})
}

// Buzz is the arbitration entry point. First committer wins by receipt
// order; every later buzz for the same question is a silent no-op — losers
// learn from the next snapshot, never from a rejection message. The client
// timestamp is informational only and never reorders claims.
func (s *Session) Buzz(participantID string, clientSentAt int64) (won bool, err error) {
	err = s.do(func() error {
		if s.metrics != nil {
			s.metrics.BuzzAttempts.Inc()
		}
		p, ok := s.state.Participants[participantID]
		if !ok {
			return ErrUnknownParticipant
		}
		if s.state.Status != StatusPlaying ||
			!s.state.TimerRunning ||
			s.state.BuzzedParticipantID != "" ||
			p.LockedOutForQuestion {
			return nil
		}
		s.state.BuzzedParticipantID = participantID
		p.Status = ParticipantAnswering
		s.pauseCountdown()
		won = true
		if s.metrics != nil {
			s.metrics.BuzzWins.Inc()
		}
		s.logger.Info().
			Str("participant", participantID).
			Int64("client_sent_at", clientSentAt).
			Int("question", s.state.CurrentQuestionIndex).
			Msg("buzzer claimed")
		s.broadcast()
		return nil
	})
	return won, err
}

// SubmitAnswer records the fenced participant's answer and auto-judges it
// against the stored correct answer. Short-answer items with no stored
// answer wait for an explicit host judgement instead.
func (s *Session) SubmitAnswer(participantID, answer string, optionIndex int) error {
	return s.do(func() error {
		p, ok := s.state.Participants[participantID]
		if !ok {
			return ErrUnknownParticipant
		}
		if s.state.BuzzedParticipantID != participantID || p.Status != ParticipantAnswering {
			return ErrNotAnswering
		}
		q := s.state.currentQuestion()
		if q == nil {
			return ErrNotPlaying
		}
		p.SelectedOption = optionIndex
		p.Answers[s.state.CurrentQuestionIndex] = answer
		if q.Answer == "" {
			s.broadcast()
			return nil
		}
		correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.Answer))
		s.judge(p, correct)
		s.broadcast()
		return nil
	})
}

// JudgeAnswer is the host's explicit verdict on the answering participant.
func (s *Session) JudgeAnswer(participantID string, correct bool) error {
	return s.do(func() error {
		p, ok := s.state.Participants[participantID]
		if !ok {
			return ErrUnknownParticipant
		}
		if s.state.BuzzedParticipantID != participantID || p.Status != ParticipantAnswering {
			return ErrNotAnswering
		}
		s.judge(p, correct)
		s.broadcast()
		return nil
	})
}

// judge applies the match policy. Runs on the session goroutine.
func (s *Session) judge(p *Participant, correct bool) {
	if correct {
		p.Status = ParticipantCorrect
		p.Score += s.state.Rules.CorrectAward
		if s.state.Rules.ContinueAfterWrong {
			// Relay mode: question stays open for the rest of the room.
			s.state.BuzzedParticipantID = ""
			s.resumeCountdown()
		} else {
			s.state.BuzzedParticipantID = ""
			s.state.Status = StatusExplaining
			s.pauseCountdown()
		}
	} else {
		p.Status = ParticipantWrong
		p.Score -= s.state.Rules.WrongPenalty
		p.LockedOutForQuestion = true
		s.state.BuzzedParticipantID = ""
		s.resumeCountdown()
	}
	s.recordScore(p)
}

// AdvanceQuestion moves forward, or finishes past the last index. The
// index never decreases within a session.
func (s *Session) AdvanceQuestion() error {
	return s.do(func() error {
		if s.state.Status == StatusFinished {
			return ErrMatchFinished
		}
		if s.state.Status == StatusLobby {
			return ErrNotPlaying
		}
		if s.state.CurrentQuestionIndex+1 >= len(s.state.Questions) {
			s.state.Status = StatusFinished
			s.state.BuzzedParticipantID = ""
			s.state.TimerRunning = false
			s.stopTicker()
			s.logger.Info().Msg("match finished")
			s.broadcast()
			return nil
		}
		s.state.CurrentQuestionIndex++
		s.state.Status = StatusPlaying
		s.resetQuestionState()
		s.broadcast()
		return nil
	})
}

// ResetBuzzer is the host override: release the slot, return the answering
// participant to online, and resume the clock. Lockouts survive until the
// next question.
func (s *Session) ResetBuzzer() error {
	return s.do(func() error {
		if id := s.state.BuzzedParticipantID; id != "" {
			if p, ok := s.state.Participants[id]; ok && p.Status == ParticipantAnswering {
				p.Status = ParticipantOnline
			}
			s.state.BuzzedParticipantID = ""
		}
		if s.state.Status == StatusPlaying {
			s.resumeCountdown()
		}
		s.broadcast()
		return nil
	})
}

// ShowExplanation reveals the answer and explanation to the whole room.
// An answering participant is returned to online first: the buzzer slot
// and the ANSWERING status always clear together.
func (s *Session) ShowExplanation() error {
	return s.do(func() error {
		if s.state.Status != StatusPlaying && s.state.Status != StatusExplaining {
			return ErrNotPlaying
		}
		if id := s.state.BuzzedParticipantID; id != "" {
			if p, ok := s.state.Participants[id]; ok && p.Status == ParticipantAnswering {
				p.Status = ParticipantOnline
			}
			s.state.BuzzedParticipantID = ""
		}
		s.state.Status = StatusExplaining
		s.pauseCountdown()
		s.broadcast()
		return nil
	})
}

// SetExplanationMode routes the explanation surface. Cosmetic.
func (s *Session) SetExplanationMode(mode string) error {
	return s.do(func() error {
		switch mode {
		case ExplanationText, ExplanationWhiteboard, ExplanationVoice:
			s.state.ExplanationMode = mode
		default:
			return ErrNotPlaying
		}
		s.broadcast()
		return nil
	})
}

// ToggleWhiteboard pauses the countdown while the host lectures and
// resumes it when the board goes down.
func (s *Session) ToggleWhiteboard(active bool) error {
	return s.do(func() error {
		s.state.WhiteboardActive = active
		if active {
			s.pauseCountdown()
		} else if s.state.Status == StatusPlaying && s.state.BuzzedParticipantID == "" {
			s.resumeCountdown()
		}
		s.broadcast()
		return nil
	})
}

// Snapshot builds the full-state sync payload. Used for every broadcast
// and as the reply to request_sync.
func (s *Session) Snapshot() (ws.SyncStatePayload, error) {
	var snap ws.SyncStatePayload
	err := s.do(func() error {
		snap = s.snapshotLocked()
		return nil
	})
	return snap, err
}

// ParticipantCount reports the current roster size.
func (s *Session) ParticipantCount() (int, error) {
	n := 0
	err := s.do(func() error {
		n = len(s.state.Participants)
		return nil
	})
	return n, err
}

// handleTick runs once per second on the session goroutine.
func (s *Session) handleTick() {
	if !s.state.TimerRunning {
		return
	}
	s.state.TimerRemaining--
	if s.state.TimerRemaining <= 0 {
		s.state.TimerRemaining = 0
		s.state.TimerRunning = false
		s.stopTicker()
		s.logger.Info().Int("question", s.state.CurrentQuestionIndex).Msg("timer expired")
		// The session stays playing; the host decides what happens next.
	}
	s.broadcast()
}

// resetQuestionState applies the question-advance invariants: buzzer
// cleared, every participant back online, lockouts and selections wiped,
// timer reloaded and stopped.
func (s *Session) resetQuestionState() {
	s.state.BuzzedParticipantID = ""
	s.state.WhiteboardActive = false
	for _, p := range s.state.Participants {
		p.Status = ParticipantOnline
		p.LockedOutForQuestion = false
		p.SelectedOption = -1
	}
	s.state.TimerRemaining = s.state.questionSeconds()
	s.state.TimerRunning = false
	s.stopTicker()
}

func (s *Session) recordScore(p *Participant) {
	if s.scores == nil {
		return
	}
	// Redis I/O stays off the event loop.
	go s.scores.Record(s.state.RoomCode, p.ID, p.DisplayName, p.Score)
}

func (s *Session) broadcast() {
	if s.pub == nil {
		return
	}
	snap := s.snapshotLocked()
	s.pub.Publish(s.state.RoomCode, ws.NewMessage(ws.TypeSyncState, snap))
	if s.metrics != nil {
		s.metrics.SnapshotsBroadcast.Inc()
	}
}

func (s *Session) snapshotLocked() ws.SyncStatePayload {
	g := &s.state
	status := g.Status
	if status == StatusPlaying && g.BuzzedParticipantID != "" {
		status = StatusAnswering
	}
	view := ws.SessionView{
		RoomCode:             g.RoomCode,
		Status:               status,
		CurrentQuestionIndex: g.CurrentQuestionIndex,
		QuestionCount:        len(g.Questions),
		TimerRemaining:       g.TimerRemaining,
		TimerRunning:         g.TimerRunning,
		BuzzedParticipantID:  g.BuzzedParticipantID,
		ExplanationMode:      g.ExplanationMode,
		WhiteboardActive:     g.WhiteboardActive,
	}
	if q := g.currentQuestion(); q != nil {
		view.CurrentQuestion = &ws.QuestionView{
			Index:     g.CurrentQuestionIndex,
			Title:     q.Title,
			Content:   q.Content,
			Type:      q.Type,
			Options:   q.Options,
			TimeLimit: g.questionSeconds(),
			ImageURL:  q.ImageURL,
		}
		if g.Status == StatusExplaining {
			view.Explanation = q.Explanation
			view.CorrectAnswer = q.Answer
		}
	}
	roster := make([]ws.ParticipantView, 0, len(g.joinOrder))
	for _, id := range g.joinOrder {
		p := g.Participants[id]
		answers := make(map[int]string, len(p.Answers))
		for idx, a := range p.Answers {
			answers[idx] = a
		}
		roster = append(roster, ws.ParticipantView{
			ID:                   p.ID,
			DisplayName:          p.DisplayName,
			Score:                p.Score,
			Status:               p.Status,
			LockedOutForQuestion: p.LockedOutForQuestion,
			Answers:              answers,
		})
	}
	return ws.SyncStatePayload{Session: view, Roster: roster}
}

// presenceKey builds `{displayName}_{suffix}`. The suffix makes the key
// unique; the display name part is cosmetic and may itself contain
// underscores without breaking anything, since the full key is the identity.
func presenceKey(displayName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return displayName + "_" + suffix
}
