package arena

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoomManager(maxPlayers int) *RoomManager {
	return NewRoomManager(nil, nil, nil, nil, maxPlayers, zerolog.New(io.Discard))
}

// recordSink captures ScoreSink calls for assertions.
type recordSink struct {
	mu      sync.Mutex
	cleared []string
}

func (r *recordSink) Record(string, string, string, int) {}

func (r *recordSink) Clear(roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, roomCode)
}

func TestOpenRoomMintsCode(t *testing.T) {
	m := newTestRoomManager(0)
	t.Cleanup(m.Shutdown)

	code, sess, err := m.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), code)
	assert.Equal(t, code, sess.RoomCode())

	found, err := m.Lookup(code)
	require.NoError(t, err)
	assert.Same(t, sess, found)

	host, err := m.HostOf(code)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", host)
}

func TestOpenRoomWithExplicitCode(t *testing.T) {
	m := newTestRoomManager(0)
	t.Cleanup(m.Shutdown)

	code, _, err := m.OpenRoom(context.Background(), "teacher-1", "abc123", DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, "ABC123", code, "codes normalize to upper case")

	_, _, err = m.OpenRoom(context.Background(), "teacher-2", "abc123", DefaultRules())
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestLookupUnknownRoom(t *testing.T) {
	m := newTestRoomManager(0)
	_, err := m.Lookup("NOPE42")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAdmitJoinEnforcesCapacity(t *testing.T) {
	m := newTestRoomManager(2)
	t.Cleanup(m.Shutdown)

	code, sess, err := m.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)

	for _, name := range []string{"An", "Binh"} {
		_, err := sess.Join("", name)
		require.NoError(t, err)
	}

	_, err = m.AdmitJoin(code)
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestCloseRoomStopsSession(t *testing.T) {
	m := newTestRoomManager(0)

	code, sess, err := m.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)

	require.NoError(t, m.CloseRoom(code))
	_, err = m.Lookup(code)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// Once the actor has wound down, operations fail instead of hanging.
	require.Eventually(t, func() bool {
		_, err := sess.Join("", "An")
		return errors.Is(err, ErrSessionClosed)
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, m.CloseRoom(code), ErrRoomNotFound)
}

func TestCloseRoomClearsStandings(t *testing.T) {
	sink := &recordSink{}
	m := NewRoomManager(nil, sink, nil, nil, 0, zerolog.New(io.Discard))

	code, _, err := m.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)

	require.NoError(t, m.CloseRoom(code))
	assert.Equal(t, []string{code}, sink.cleared)
}
