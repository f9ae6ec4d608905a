package arena

import (
	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

// Replica is the read-only mirror a student client keeps of the session.
// It never computes state transitions: every Apply replaces the whole view
// with the host's snapshot, so applying the same snapshot twice is a no-op
// and applying snapshots out of an interleaving is harmless.
type Replica struct {
	ParticipantID string

	View   ws.SessionView
	Roster []ws.ParticipantView

	// HostPresent tracks the host-tagged presence key. When it drops the
	// UI shows a host-lost notice; state is untouched so a returning host
	// resumes exactly where it left off.
	HostPresent bool

	synced bool
}

// NewReplica returns an empty replica for the given participant identity.
// It stays unsynced until the first snapshot or presence update arrives.
func NewReplica(participantID string) *Replica {
	return &Replica{ParticipantID: participantID}
}

// Apply overwrites the replica with a full snapshot.
func (r *Replica) Apply(snap ws.SyncStatePayload) {
	r.View = snap.Session
	r.Roster = snap.Roster
	r.synced = true
}

// ApplyPresence records the latest presence roster.
func (r *Replica) ApplyPresence(p ws.PresenceUpdatePayload) {
	r.HostPresent = p.HostPresent
}

// Synced reports whether at least one snapshot has been applied. A replica
// that reconnects should send request_sync until this flips true.
func (r *Replica) Synced() bool { return r.synced }

// InRoster reports whether this replica's participant appears in the
// host's roster. False after a sync means the host no longer knows this
// identity and the client must re-join before buzzing.
func (r *Replica) InRoster() bool {
	for _, p := range r.Roster {
		if p.ID == r.ParticipantID {
			return true
		}
	}
	return false
}

// Self returns this participant's roster entry, if present.
func (r *Replica) Self() (ws.ParticipantView, bool) {
	for _, p := range r.Roster {
		if p.ID == r.ParticipantID {
			return p, true
		}
	}
	return ws.ParticipantView{}, false
}

// CanBuzz is the client-side gate that keeps obviously doomed buzz
// attempts off the wire. The host remains the arbiter; passing this check
// does not mean the buzz will win. With no host present there is nobody
// to arbitrate, so the gate closes.
func (r *Replica) CanBuzz() bool {
	if !r.synced || !r.HostPresent || r.View.Status != StatusPlaying || !r.View.TimerRunning {
		return false
	}
	if r.View.BuzzedParticipantID != "" {
		return false
	}
	self, ok := r.Self()
	if !ok {
		return false
	}
	return !self.LockedOutForQuestion
}
