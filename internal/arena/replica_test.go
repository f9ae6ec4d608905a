package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

func testSnapshot() ws.SyncStatePayload {
	return ws.SyncStatePayload{
		Session: ws.SessionView{
			RoomCode:             "ROOM01",
			Status:               StatusPlaying,
			CurrentQuestionIndex: 2,
			QuestionCount:        10,
			TimerRemaining:       17,
			TimerRunning:         true,
		},
		Roster: []ws.ParticipantView{
			{ID: "An_a1b2c3d4", DisplayName: "An", Score: 100},
			{ID: "Binh_e5f6a7b8", DisplayName: "Binh", Score: -50, LockedOutForQuestion: true},
		},
	}
}

func TestApplyIsFullReplace(t *testing.T) {
	r := NewReplica("An_a1b2c3d4")
	assert.False(t, r.Synced())

	snap := testSnapshot()
	r.Apply(snap)
	assert.True(t, r.Synced())
	assert.Equal(t, 2, r.View.CurrentQuestionIndex)

	// A locally diverged view is overwritten wholesale by the next
	// snapshot, so replicas can never drift for more than one update.
	r.View.CurrentQuestionIndex = 99
	r.View.TimerRemaining = 1
	r.Apply(snap)
	assert.Equal(t, 2, r.View.CurrentQuestionIndex)
	assert.Equal(t, 17, r.View.TimerRemaining)
}

func TestApplyIsIdempotent(t *testing.T) {
	r := NewReplica("An_a1b2c3d4")
	snap := testSnapshot()

	r.Apply(snap)
	first := r.View
	r.Apply(snap)
	assert.Equal(t, first, r.View)
	assert.Equal(t, snap.Roster, r.Roster)
}

func TestInRosterDetectsDroppedIdentity(t *testing.T) {
	r := NewReplica("An_a1b2c3d4")
	r.Apply(testSnapshot())
	assert.True(t, r.InRoster())

	// Hosted restarted and lost the roster: the snapshot no longer
	// carries us, so the client knows to re-join.
	snap := testSnapshot()
	snap.Roster = snap.Roster[1:]
	r.Apply(snap)
	assert.False(t, r.InRoster())
}

func TestCanBuzzGates(t *testing.T) {
	r := NewReplica("An_a1b2c3d4")
	assert.False(t, r.CanBuzz(), "unsynced replica never buzzes")

	r.ApplyPresence(ws.PresenceUpdatePayload{HostPresent: true})
	r.Apply(testSnapshot())
	assert.True(t, r.CanBuzz())

	r.ApplyPresence(ws.PresenceUpdatePayload{HostPresent: false})
	assert.False(t, r.CanBuzz(), "nobody arbitrates after host loss")
	r.ApplyPresence(ws.PresenceUpdatePayload{HostPresent: true})
	assert.True(t, r.CanBuzz(), "gate reopens when the host returns")

	held := testSnapshot()
	held.Session.BuzzedParticipantID = "Binh_e5f6a7b8"
	r.Apply(held)
	assert.False(t, r.CanBuzz(), "slot already claimed")

	stopped := testSnapshot()
	stopped.Session.TimerRunning = false
	r.Apply(stopped)
	assert.False(t, r.CanBuzz(), "no buzz while the clock is stopped")

	lobby := testSnapshot()
	lobby.Session.Status = StatusLobby
	r.Apply(lobby)
	assert.False(t, r.CanBuzz())

	locked := NewReplica("Binh_e5f6a7b8")
	locked.ApplyPresence(ws.PresenceUpdatePayload{HostPresent: true})
	locked.Apply(testSnapshot())
	assert.False(t, locked.CanBuzz(), "locked-out participant stays out")
}

func TestHostPresenceTracking(t *testing.T) {
	r := NewReplica("An_a1b2c3d4")
	r.ApplyPresence(ws.PresenceUpdatePayload{
		RoomCode:    "ROOM01",
		Keys:        []string{"An_a1b2c3d4", "Thay Minh_host"},
		HostPresent: true,
	})
	assert.True(t, r.HostPresent)

	r.Apply(testSnapshot())
	r.ApplyPresence(ws.PresenceUpdatePayload{
		RoomCode:    "ROOM01",
		Keys:        []string{"An_a1b2c3d4"},
		HostPresent: false,
	})
	assert.False(t, r.HostPresent)
	// Game state survives host loss untouched; only the notice changes.
	assert.Equal(t, StatusPlaying, r.View.Status)
}
