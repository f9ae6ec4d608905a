package arena

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvtran/goldenbell/internal/question"
	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

type stubQuestions struct {
	questions []question.Question
}

func (s *stubQuestions) Load(context.Context, string, string, int) ([]question.Question, error) {
	return s.questions, nil
}

// recordAssignments captures AssignmentStore calls for assertions.
type recordAssignments struct {
	mu       sync.Mutex
	assigned map[string][2]string // room -> {set, teacher}
	cleared  []string
}

func newRecordAssignments() *recordAssignments {
	return &recordAssignments{assigned: make(map[string][2]string)}
}

func (r *recordAssignments) AssignRoom(_ context.Context, roomCode, setID, teacherID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigned[roomCode] = [2]string{setID, teacherID}
	return nil
}

func (r *recordAssignments) RoomAssignment(_ context.Context, roomCode string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assigned[roomCode][0], nil
}

func (r *recordAssignments) ClearRoomAssignment(_ context.Context, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assigned, roomCode)
	r.cleared = append(r.cleared, roomCode)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *RoomManager, *recordAssignments) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	rooms := NewRoomManager(nil, nil, nil, nil, 0, logger)
	t.Cleanup(rooms.Shutdown)

	assignments := newRecordAssignments()
	h := NewHandler(rooms, ws.NewHub(logger), &stubQuestions{questions: testQuestions(3)}, assignments, testRules(), logger)
	return h, rooms, assignments
}

func TestAuthorizeHostRejectsForeignTeacher(t *testing.T) {
	h, rooms, _ := newTestHandler(t)

	code, _, err := rooms.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)

	// A host token is valid for every room code; only the teacher who
	// opened this room may drive it.
	err = h.authorizeHost(Identity{SubjectID: "teacher-2", Role: RoleHost, RoomCode: code})
	assert.ErrorIs(t, err, ErrNotRoomHost)

	require.NoError(t, h.authorizeHost(Identity{SubjectID: "teacher-1", Role: RoleHost, RoomCode: code}))

	err = h.authorizeHost(Identity{SubjectID: "teacher-1", Role: RoleHost, RoomCode: "NOPE42"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStartMatchRecordsRoomAssignment(t *testing.T) {
	h, rooms, assignments := newTestHandler(t)

	code, sess, err := rooms.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)
	_, err = sess.Join("subject-1", "An")
	require.NoError(t, err)

	st := &connState{
		clientID: "conn-1",
		identity: Identity{SubjectID: "teacher-1", Role: RoleHost, RoomCode: code},
		session:  sess,
	}
	payload, err := json.Marshal(ws.HostStartMatchPayload{SetID: "set-9"})
	require.NoError(t, err)

	require.NoError(t, h.handleStartMatch(context.Background(), st, payload))

	setID, err := assignments.RoomAssignment(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "set-9", setID)
	assignments.mu.Lock()
	assert.Equal(t, "teacher-1", assignments.assigned[code][1])
	assignments.mu.Unlock()
}

func TestCloseRoomClearsAssignment(t *testing.T) {
	h, rooms, assignments := newTestHandler(t)

	code, sess, err := rooms.OpenRoom(context.Background(), "teacher-1", "", DefaultRules())
	require.NoError(t, err)
	require.NoError(t, assignments.AssignRoom(context.Background(), code, "set-9", "teacher-1"))

	st := &connState{
		clientID: "conn-1",
		identity: Identity{SubjectID: "teacher-1", Role: RoleHost, RoomCode: code},
		session:  sess,
	}
	require.NoError(t, h.handleCloseRoom(context.Background(), st))

	assert.Equal(t, []string{code}, assignments.cleared)
	_, err = rooms.Lookup(code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
