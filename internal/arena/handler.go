package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/question"
	httperrors "github.com/hvtran/goldenbell/pkg/http/errors"
	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

// QuestionSource loads a question set for a starting match, either a
// stored exam set or a freshly generated one.
type QuestionSource interface {
	Load(ctx context.Context, setID, topic string, count int) ([]question.Question, error)
}

// AssignmentStore persists which exam set a room is running, so the
// mapping survives a host crash and a re-opened room can offer the same
// set again.
type AssignmentStore interface {
	AssignRoom(ctx context.Context, roomCode, setID, teacherID string) error
	RoomAssignment(ctx context.Context, roomCode string) (string, error)
	ClearRoomAssignment(ctx context.Context, roomCode string) error
}

// Identity is the authenticated principal behind a WebSocket connection,
// extracted from the JWT before the upgrade.
type Identity struct {
	SubjectID   string
	DisplayName string
	Role        string // "host" or "student"
	RoomCode    string
}

// Handler routes arena WebSocket messages between connections and the room
// sessions. Host-only commands are guarded by the connection's role.
type Handler struct {
	rooms       *RoomManager
	hub         *ws.Hub
	questions   QuestionSource
	assignments AssignmentStore
	rules       Rules
	logger      zerolog.Logger
}

// NewHandler creates the arena WebSocket handler. assignments may be nil
// when no durable store is configured.
func NewHandler(rooms *RoomManager, hub *ws.Hub, questions QuestionSource, assignments AssignmentStore, rules Rules, logger zerolog.Logger) *Handler {
	return &Handler{
		rooms:       rooms,
		hub:         hub,
		questions:   questions,
		assignments: assignments,
		rules:       rules,
		logger:      logger.With().Str("component", "arena_handler").Logger(),
	}
}

// connState is the per-connection routing state. Mutated only from the
// connection's ReadPump goroutine.
type connState struct {
	clientID      string
	identity      Identity
	participantID string
	session       *Session
}

// HandleConnection drives one WebSocket connection until it closes.
// The identity is already validated; the room must exist.
func (h *Handler) HandleConnection(conn *websocket.Conn, identity Identity) {
	sess, err := h.rooms.Lookup(identity.RoomCode)
	if err != nil {
		_ = conn.WriteJSON(ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:    httperrors.ErrCodeRoomNotFound,
			Message: "Room not found",
		}))
		conn.Close()
		return
	}

	st := &connState{
		clientID: uuid.NewString(),
		identity: identity,
		session:  sess,
	}

	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(st.clientID, wsConn)
	go wsConn.WritePump()

	if identity.Role == RoleHost {
		// Only the teacher who opened the room drives it: any host token
		// can reach the upgrade, so ownership is checked here.
		if err := h.authorizeHost(identity); err != nil {
			_ = wsConn.Send(ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    httperrors.ErrCodeNotHost,
				Message: "Room belongs to another host",
			}))
			h.hub.UnregisterConnection(st.clientID)
			return
		}
		// The host joins the room immediately with a host-tagged presence
		// key so replicas can detect host loss.
		st.participantID = identity.SubjectID
		h.hub.JoinRoom(identity.RoomCode, st.clientID, identity.DisplayName+"_host", true)
		h.sendSnapshot(st)
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), st, msg)
	})

	if st.participantID != "" && identity.Role != RoleHost {
		// Presence drops with the connection; roster membership stays so
		// the student can reconnect with score intact.
		h.hub.LeaveRoom(identity.RoomCode, st.clientID)
	}
	h.hub.UnregisterConnection(st.clientID)
}

// Connection roles.
const (
	RoleHost    = "host"
	RoleStudent = "student"
)

func (h *Handler) handleMessage(ctx context.Context, st *connState, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeStudentJoin:
		return h.handleJoin(st, msg.Payload)
	case ws.TypeStudentBuzz:
		return h.handleBuzz(st, msg.Payload)
	case ws.TypeStudentAnswer:
		return h.handleAnswer(st, msg.Payload)
	case ws.TypeRequestSync:
		h.sendSnapshot(st)
		return nil
	case ws.TypeLeaveRoom:
		return h.handleLeave(st)
	case ws.TypePing:
		return h.hub.SendTo(st.clientID, ws.NewMessage(ws.TypePong, nil))

	case ws.TypeHostStartMatch:
		return h.hostOnly(st, func() error { return h.handleStartMatch(ctx, st, msg.Payload) })
	case ws.TypeHostStartTimer:
		return h.hostOnly(st, func() error { return h.surface(st, st.session.StartTimer()) })
	case ws.TypeHostPauseTimer:
		return h.hostOnly(st, func() error { return h.surface(st, st.session.PauseTimer()) })
	case ws.TypeHostJudge:
		return h.hostOnly(st, func() error { return h.handleJudge(st, msg.Payload) })
	case ws.TypeHostNextQuestion:
		return h.hostOnly(st, func() error { return h.surface(st, st.session.AdvanceQuestion()) })
	case ws.TypeHostResetBuzzer:
		return h.hostOnly(st, func() error { return h.surface(st, st.session.ResetBuzzer()) })
	case ws.TypeHostShowExplanation:
		return h.hostOnly(st, func() error { return h.surface(st, st.session.ShowExplanation()) })
	case ws.TypeSetExplanationMode:
		return h.hostOnly(st, func() error { return h.handleExplanationMode(st, msg.Payload) })
	case ws.TypeToggleWhiteboard:
		return h.hostOnly(st, func() error { return h.handleToggleWhiteboard(st, msg.Payload) })
	case ws.TypeHostCloseRoom:
		return h.hostOnly(st, func() error { return h.handleCloseRoom(ctx, st) })

	case ws.TypeDrawStroke, ws.TypeClearCanvas:
		// Whiteboard traffic is pass-through: not part of game state, just
		// relayed to the room as-is.
		return h.hostOnly(st, func() error {
			h.hub.BroadcastToRoom(st.identity.RoomCode, msg)
			return nil
		})

	default:
		return h.sendError(st, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleJoin(st *connState, payload json.RawMessage) error {
	var req ws.StudentJoinPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.DisplayName == "" {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid student_join payload")
	}

	sess, err := h.rooms.AdmitJoin(st.identity.RoomCode)
	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			return h.sendError(st, httperrors.ErrCodeRoomFull, "Room is full")
		}
		return h.sendError(st, httperrors.ErrCodeRoomNotFound, "Room not found")
	}

	// Identity comes from the token, never from the payload: a joiner
	// cannot present someone else's ID and inherit their score.
	id, err := sess.Join(st.identity.SubjectID, req.DisplayName)
	if err != nil {
		return h.sendError(st, httperrors.ErrCodeJoinFailed, err.Error())
	}
	st.participantID = id

	h.hub.JoinRoom(st.identity.RoomCode, st.clientID, id, false)
	h.sendSnapshot(st)
	return nil
}

func (h *Handler) handleBuzz(st *connState, payload json.RawMessage) error {
	var req ws.StudentBuzzPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid student_buzz payload")
	}
	if st.participantID == "" {
		return h.sendError(st, httperrors.ErrCodeNotJoined, "Join the room before buzzing")
	}
	// Losing the race is not an error; the snapshot tells the story.
	_, err := st.session.Buzz(st.participantID, req.ClientSentAt)
	return h.surface(st, err)
}

func (h *Handler) handleAnswer(st *connState, payload json.RawMessage) error {
	var req ws.StudentAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid student_answer payload")
	}
	if st.participantID == "" {
		return h.sendError(st, httperrors.ErrCodeNotJoined, "Join the room before answering")
	}
	return h.surface(st, st.session.SubmitAnswer(st.participantID, req.Answer, req.OptionIndex))
}

func (h *Handler) handleLeave(st *connState) error {
	if st.participantID == "" {
		return nil
	}
	err := st.session.Leave(st.participantID)
	h.hub.LeaveRoom(st.identity.RoomCode, st.clientID)
	st.participantID = ""
	return err
}

func (h *Handler) handleStartMatch(ctx context.Context, st *connState, payload json.RawMessage) error {
	var req ws.HostStartMatchPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid host_start_match payload")
	}

	questions, err := h.questions.Load(ctx, req.SetID, req.Topic, req.QuestionCount)
	if err != nil {
		return h.sendError(st, httperrors.ErrCodeSetNotFound, err.Error())
	}

	// Policy is fixed for the whole match; the only chance to set it is
	// here, before the first question.
	rules := h.rules
	if req.ContinueAfterWrong != nil {
		rules.ContinueAfterWrong = *req.ContinueAfterWrong
	}

	if err := st.session.StartMatch(questions, rules); err != nil {
		if errors.Is(err, ErrNoParticipants) {
			return h.sendError(st, httperrors.ErrCodeNoParticipants, "At least one participant must join first")
		}
		return h.sendError(st, httperrors.ErrCodeMatchStartFailed, err.Error())
	}

	// Persist the room-to-set mapping so a crashed host re-opening the
	// room finds the set it was running.
	if req.SetID != "" && h.assignments != nil {
		if err := h.assignments.AssignRoom(ctx, st.identity.RoomCode, req.SetID, st.identity.SubjectID); err != nil {
			h.logger.Warn().Err(err).Str("room_code", st.identity.RoomCode).Msg("room assignment not recorded")
		}
	}
	return nil
}

func (h *Handler) handleJudge(st *connState, payload json.RawMessage) error {
	var req ws.HostJudgePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid host_judge payload")
	}
	return h.surface(st, st.session.JudgeAnswer(req.ParticipantID, req.Correct))
}

func (h *Handler) handleExplanationMode(st *connState, payload json.RawMessage) error {
	var req ws.SetExplanationModePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid set_explanation_mode payload")
	}
	return h.surface(st, st.session.SetExplanationMode(req.Mode))
}

func (h *Handler) handleToggleWhiteboard(st *connState, payload json.RawMessage) error {
	var req ws.ToggleWhiteboardPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(st, httperrors.ErrCodeInvalidPayload, "Invalid toggle_whiteboard payload")
	}
	return h.surface(st, st.session.ToggleWhiteboard(req.Active))
}

func (h *Handler) handleCloseRoom(ctx context.Context, st *connState) error {
	h.hub.BroadcastToRoom(st.identity.RoomCode, ws.NewMessage(ws.TypeRoomClosed, ws.RoomClosedPayload{
		RoomCode: st.identity.RoomCode,
		Reason:   "closed by host",
	}))
	if h.assignments != nil {
		if err := h.assignments.ClearRoomAssignment(ctx, st.identity.RoomCode); err != nil {
			h.logger.Warn().Err(err).Str("room_code", st.identity.RoomCode).Msg("room assignment not cleared")
		}
	}
	return h.rooms.CloseRoom(st.identity.RoomCode)
}

// authorizeHost checks that a host connection belongs to the teacher who
// opened the room. A host token is valid for every room code, so the role
// claim alone is not enough.
func (h *Handler) authorizeHost(identity Identity) error {
	hostID, err := h.rooms.HostOf(identity.RoomCode)
	if err != nil {
		return err
	}
	if hostID != identity.SubjectID {
		return ErrNotRoomHost
	}
	return nil
}

// hostOnly rejects host commands from student connections.
func (h *Handler) hostOnly(st *connState, fn func() error) error {
	if st.identity.Role != RoleHost {
		return h.sendError(st, httperrors.ErrCodeNotHost, "Host role required")
	}
	return fn()
}

// surface converts a session validation failure into an error message on
// this connection. Invariant-guard errors are expected during races (a
// judge command landing after a reset) and are reported, not logged loudly.
func (h *Handler) surface(st *connState, err error) error {
	if err == nil {
		return nil
	}
	return h.sendError(st, httperrors.ErrCodeCommandRejected, err.Error())
}

func (h *Handler) sendSnapshot(st *connState) {
	snap, err := st.session.Snapshot()
	if err != nil {
		h.logger.Warn().Err(err).Str("room_code", st.identity.RoomCode).Msg("snapshot failed")
		return
	}
	if err := h.hub.SendTo(st.clientID, ws.NewMessage(ws.TypeSyncState, snap)); err != nil {
		h.logger.Warn().Err(err).Str("client_id", st.clientID).Msg("snapshot send failed")
	}
}

func (h *Handler) sendError(st *connState, code, message string) error {
	return h.hub.SendTo(st.clientID, ws.NewMessage(ws.TypeError, ws.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
