package arena

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvtran/goldenbell/internal/question"
	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

type capturePub struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (p *capturePub) Publish(roomCode string, msg ws.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *capturePub) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func testRules() Rules {
	return Rules{
		ContinueAfterWrong:     true,
		CorrectAward:           100,
		WrongPenalty:           50,
		DefaultQuestionSeconds: 5,
	}
}

func testQuestions(n int) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:      "q" + string(rune('1'+i)),
			Content: "question",
			Type:    question.TypeMCQ,
			Options: []string{"A", "B"},
			Answer:  "A",
		}
	}
	return qs
}

func newTestSession(t *testing.T, rules Rules) (*Session, *capturePub, *clockwork.FakeClock) {
	t.Helper()
	pub := &capturePub{}
	fc := clockwork.NewFakeClock()
	sess := NewSession("ROOM01", rules, pub, zerolog.New(io.Discard), SessionOptions{Clock: fc})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.Run(ctx)
	return sess, pub, fc
}

// startPlaying joins the given students, starts the match, and starts the
// first question's timer.
func startPlaying(t *testing.T, sess *Session, names ...string) []string {
	t.Helper()
	ids := make([]string, len(names))
	for i, name := range names {
		id, err := sess.Join("", name)
		require.NoError(t, err)
		ids[i] = id
	}
	require.NoError(t, sess.StartMatch(testQuestions(3), testRules()))
	require.NoError(t, sess.StartTimer())
	return ids
}

func snapshot(t *testing.T, sess *Session) ws.SyncStatePayload {
	t.Helper()
	snap, err := sess.Snapshot()
	require.NoError(t, err)
	return snap
}

func TestStartMatchRequiresParticipants(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())

	err := sess.StartMatch(testQuestions(1), testRules())
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestStartMatchRequiresQuestions(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	_, err := sess.Join("", "An")
	require.NoError(t, err)

	err = sess.StartMatch(nil, testRules())
	assert.ErrorIs(t, err, ErrEmptyQuestionSet)
}

func TestConcurrentBuzzSingleWinner(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh", "Chi", "Dung", "Em")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for _, id := range ids {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			won, err := sess.Buzz(pid, time.Now().UnixMilli())
			assert.NoError(t, err)
			if won {
				mu.Lock()
				wins = append(wins, pid)
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	require.Len(t, wins, 1, "exactly one buzz must win")
	snap := snapshot(t, sess)
	assert.Equal(t, wins[0], snap.Session.BuzzedParticipantID)
	assert.Equal(t, StatusAnswering, snap.Session.Status)
	assert.False(t, snap.Session.TimerRunning, "countdown pauses while someone answers")
}

func TestBuzzBeforeTimerStartsIsIgnored(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	id, err := sess.Join("", "An")
	require.NoError(t, err)
	require.NoError(t, sess.StartMatch(testQuestions(1), testRules()))

	won, err := sess.Buzz(id, 0)
	require.NoError(t, err)
	assert.False(t, won)
	assert.Empty(t, snapshot(t, sess).Session.BuzzedParticipantID)
}

func TestBuzzFromUnknownParticipant(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	startPlaying(t, sess, "An")

	_, err := sess.Buzz("ghost_123", 0)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestWrongAnswerLocksOutAndResumes(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh")

	won, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	require.True(t, won)

	pausedAt := snapshot(t, sess).Session.TimerRemaining
	require.NoError(t, sess.JudgeAnswer(ids[0], false))

	snap := snapshot(t, sess)
	assert.Equal(t, StatusPlaying, snap.Session.Status)
	assert.Empty(t, snap.Session.BuzzedParticipantID)
	assert.True(t, snap.Session.TimerRunning, "countdown resumes after a wrong answer")
	assert.Equal(t, pausedAt, snap.Session.TimerRemaining, "countdown resumes from the paused value")

	var wrong ws.ParticipantView
	for _, p := range snap.Roster {
		if p.ID == ids[0] {
			wrong = p
		}
	}
	assert.Equal(t, -50, wrong.Score)
	assert.True(t, wrong.LockedOutForQuestion)

	// The locked-out student cannot re-claim this question.
	won, err = sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	assert.False(t, won)

	// But the other student can.
	won, err = sess.Buzz(ids[1], 0)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestCorrectAnswerRelayKeepsQuestionOpen(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh")

	_, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	require.NoError(t, sess.JudgeAnswer(ids[0], true))

	snap := snapshot(t, sess)
	assert.Equal(t, StatusPlaying, snap.Session.Status)
	assert.Empty(t, snap.Session.BuzzedParticipantID)
	assert.True(t, snap.Session.TimerRunning)
	for _, p := range snap.Roster {
		if p.ID == ids[0] {
			assert.Equal(t, 100, p.Score)
			assert.Equal(t, ParticipantCorrect, p.Status)
		}
	}
}

func TestCorrectAnswerSuddenDeathEndsQuestion(t *testing.T) {
	rules := testRules()
	rules.ContinueAfterWrong = false
	sess, _, _ := newTestSession(t, rules)

	id, err := sess.Join("", "An")
	require.NoError(t, err)
	require.NoError(t, sess.StartMatch(testQuestions(2), rules))
	require.NoError(t, sess.StartTimer())

	_, err = sess.Buzz(id, 0)
	require.NoError(t, err)
	require.NoError(t, sess.JudgeAnswer(id, true))

	snap := snapshot(t, sess)
	assert.Equal(t, StatusExplaining, snap.Session.Status)
	assert.False(t, snap.Session.TimerRunning)
}

func TestSubmitAnswerAutoJudges(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An")

	_, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	require.NoError(t, sess.SubmitAnswer(ids[0], " a ", 0))

	snap := snapshot(t, sess)
	for _, p := range snap.Roster {
		assert.Equal(t, 100, p.Score, "trim and case differences still match")
		assert.Equal(t, " a ", p.Answers[0], "submitted text kept verbatim in history")
	}
}

func TestSubmitAnswerWithoutBuzzRejected(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An")

	err := sess.SubmitAnswer(ids[0], "A", 0)
	assert.ErrorIs(t, err, ErrNotAnswering)
}

func TestAdvanceQuestionResetsRoundState(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh")

	_, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	require.NoError(t, sess.JudgeAnswer(ids[0], false))

	require.NoError(t, sess.AdvanceQuestion())
	snap := snapshot(t, sess)
	assert.Equal(t, 1, snap.Session.CurrentQuestionIndex)
	assert.Equal(t, StatusPlaying, snap.Session.Status)
	assert.Empty(t, snap.Session.BuzzedParticipantID)
	assert.False(t, snap.Session.TimerRunning, "the timer waits for an explicit start")
	assert.Equal(t, 5, snap.Session.TimerRemaining)
	for _, p := range snap.Roster {
		assert.False(t, p.LockedOutForQuestion, "lockouts clear on advance")
		assert.Equal(t, ParticipantOnline, p.Status)
	}
}

func TestAdvancePastLastQuestionFinishes(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	startPlaying(t, sess, "An")

	require.NoError(t, sess.AdvanceQuestion())
	require.NoError(t, sess.AdvanceQuestion())
	require.NoError(t, sess.AdvanceQuestion())

	snap := snapshot(t, sess)
	assert.Equal(t, StatusFinished, snap.Session.Status)

	assert.ErrorIs(t, sess.AdvanceQuestion(), ErrMatchFinished)
}

func TestResetBuzzerReleasesSlotKeepsLockouts(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh")

	_, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	require.NoError(t, sess.JudgeAnswer(ids[0], false)) // An locked out

	_, err = sess.Buzz(ids[1], 0)
	require.NoError(t, err)
	require.NoError(t, sess.ResetBuzzer())

	snap := snapshot(t, sess)
	assert.Empty(t, snap.Session.BuzzedParticipantID)
	assert.True(t, snap.Session.TimerRunning)
	for _, p := range snap.Roster {
		switch p.ID {
		case ids[0]:
			assert.True(t, p.LockedOutForQuestion, "reset does not clear lockouts")
		case ids[1]:
			assert.Equal(t, ParticipantOnline, p.Status)
			assert.False(t, p.LockedOutForQuestion)
		}
	}
}

func TestLeaveWhileAnsweringReleasesBuzzer(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh")

	_, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)
	require.NoError(t, sess.Leave(ids[0]))

	snap := snapshot(t, sess)
	assert.Empty(t, snap.Session.BuzzedParticipantID)
	assert.True(t, snap.Session.TimerRunning)
	assert.Len(t, snap.Roster, 1)
}

func TestTimerExpiryStopsWithoutAdvancing(t *testing.T) {
	sess, _, fc := newTestSession(t, testRules())
	startPlaying(t, sess, "An")

	for i := 0; i < 5; i++ {
		expected := 5 - i - 1
		fc.Advance(time.Second)
		require.Eventually(t, func() bool {
			return snapshot(t, sess).Session.TimerRemaining == expected
		}, time.Second, time.Millisecond, "tick %d", i)
	}

	snap := snapshot(t, sess)
	assert.Equal(t, 0, snap.Session.TimerRemaining)
	assert.False(t, snap.Session.TimerRunning)
	assert.Equal(t, StatusPlaying, snap.Session.Status, "expiry never advances the question")
	assert.Equal(t, 0, snap.Session.CurrentQuestionIndex)

	// Expired question takes no buzzes...
	ids := snapshot(t, sess).Roster
	won, err := sess.Buzz(ids[0].ID, 0)
	require.NoError(t, err)
	assert.False(t, won)

	// ...and a reset cannot revive a clock that ran out.
	require.NoError(t, sess.ResetBuzzer())
	assert.False(t, snapshot(t, sess).Session.TimerRunning)
}

func TestWhiteboardPausesAndResumesTimer(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	startPlaying(t, sess, "An")

	require.NoError(t, sess.ToggleWhiteboard(true))
	snap := snapshot(t, sess)
	assert.True(t, snap.Session.WhiteboardActive)
	assert.False(t, snap.Session.TimerRunning)

	require.NoError(t, sess.ToggleWhiteboard(false))
	snap = snapshot(t, sess)
	assert.False(t, snap.Session.WhiteboardActive)
	assert.True(t, snap.Session.TimerRunning)
}

func TestPauseTimerHoldsRemaining(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	startPlaying(t, sess, "An")

	require.NoError(t, sess.PauseTimer())
	snap := snapshot(t, sess)
	assert.False(t, snap.Session.TimerRunning)
	remaining := snap.Session.TimerRemaining

	require.NoError(t, sess.StartTimer())
	snap = snapshot(t, sess)
	assert.True(t, snap.Session.TimerRunning)
	assert.Equal(t, remaining, snap.Session.TimerRemaining)
}

func TestShowExplanationReleasesAnsweringParticipant(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An")

	_, err := sess.Buzz(ids[0], 0)
	require.NoError(t, err)

	require.NoError(t, sess.ShowExplanation())
	snap := snapshot(t, sess)
	assert.Empty(t, snap.Session.BuzzedParticipantID)
	// Slot and status clear together: an empty buzzer slot must leave
	// nobody marked as answering.
	for _, p := range snap.Roster {
		assert.NotEqual(t, ParticipantAnswering, p.Status)
	}
}

func TestPauseTimerOutsideMatchRejected(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())

	assert.ErrorIs(t, sess.PauseTimer(), ErrNotPlaying)
}

func TestShowExplanationRevealsAnswer(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())
	startPlaying(t, sess, "An")

	assert.Empty(t, snapshot(t, sess).Session.CorrectAnswer, "answer withheld while playing")

	require.NoError(t, sess.ShowExplanation())
	snap := snapshot(t, sess)
	assert.Equal(t, StatusExplaining, snap.Session.Status)
	assert.Equal(t, "A", snap.Session.CorrectAnswer)
	assert.False(t, snap.Session.TimerRunning)
}

func TestLateJoinSeesCurrentQuestion(t *testing.T) {
	sess, _, fc := newTestSession(t, testRules())
	ids := startPlaying(t, sess, "An", "Binh")

	fc.Advance(time.Second)
	require.Eventually(t, func() bool {
		return snapshot(t, sess).Session.TimerRemaining == 4
	}, time.Second, time.Millisecond)

	late, err := sess.Join("", "Chi")
	require.NoError(t, err)

	snap := snapshot(t, sess)
	assert.Equal(t, 0, snap.Session.CurrentQuestionIndex)
	assert.Equal(t, 4, snap.Session.TimerRemaining)
	assert.Len(t, snap.Roster, 3)
	seen := map[string]bool{}
	for _, p := range snap.Roster {
		seen[p.ID] = true
	}
	assert.True(t, seen[ids[0]] && seen[ids[1]] && seen[late])
}

func TestSameDisplayNameGetsDistinctIdentity(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())

	first, err := sess.Join("subject-1", "An")
	require.NoError(t, err)
	second, err := sess.Join("subject-2", "An")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, snapshot(t, sess).Roster, 2)
}

func TestRejoinKeysOnSubject(t *testing.T) {
	sess, _, _ := newTestSession(t, testRules())

	id, err := sess.Join("subject-1", "An")
	require.NoError(t, err)
	require.NoError(t, sess.StartMatch(testQuestions(3), testRules()))
	require.NoError(t, sess.StartTimer())

	_, err = sess.Buzz(id, 0)
	require.NoError(t, err)
	require.NoError(t, sess.JudgeAnswer(id, true))

	rejoined, err := sess.Join("subject-1", "An")
	require.NoError(t, err)
	assert.Equal(t, id, rejoined)

	snap := snapshot(t, sess)
	require.Len(t, snap.Roster, 1)
	assert.Equal(t, 100, snap.Roster[0].Score)

	// A different subject sharing the display name is a new participant:
	// it cannot inherit the first student's identity or score.
	stranger, err := sess.Join("subject-2", "An")
	require.NoError(t, err)
	assert.NotEqual(t, id, stranger)

	snap = snapshot(t, sess)
	require.Len(t, snap.Roster, 2)
	for _, p := range snap.Roster {
		if p.ID == stranger {
			assert.Zero(t, p.Score)
		}
	}
}

func TestEveryMutationBroadcastsSnapshot(t *testing.T) {
	sess, pub, _ := newTestSession(t, testRules())

	before := pub.Count()
	_, err := sess.Join("", "An")
	require.NoError(t, err)
	require.NoError(t, sess.StartMatch(testQuestions(1), testRules()))
	require.NoError(t, sess.StartTimer())

	assert.GreaterOrEqual(t, pub.Count(), before+3)

	var last ws.Message
	pub.mu.Lock()
	last = pub.msgs[len(pub.msgs)-1]
	pub.mu.Unlock()
	assert.Equal(t, ws.TypeSyncState, last.Type)
}
