package ws

import "encoding/json"

// MessageType constants for the arena WebSocket protocol.
const (
	// Student -> Server
	TypeStudentJoin   = "student_join"
	TypeStudentBuzz   = "student_buzz"
	TypeStudentAnswer = "student_answer"
	TypeRequestSync   = "request_sync"
	TypeLeaveRoom     = "leave_room"

	// Host -> Server
	TypeHostStartMatch      = "host_start_match"
	TypeHostStartTimer      = "host_start_timer"
	TypeHostPauseTimer      = "host_pause_timer"
	TypeHostJudge           = "host_judge"
	TypeHostNextQuestion    = "host_next_question"
	TypeHostResetBuzzer     = "host_reset_buzzer"
	TypeHostShowExplanation = "host_show_explanation"
	TypeSetExplanationMode  = "set_explanation_mode"
	TypeToggleWhiteboard    = "toggle_whiteboard"
	TypeHostCloseRoom       = "host_close_room"

	// Whiteboard passthrough (either direction, host-originated in practice)
	TypeDrawStroke  = "draw_stroke"
	TypeClearCanvas = "clear_canvas"

	// Server -> Clients
	TypeSyncState      = "sync_state"
	TypePresenceUpdate = "presence_update"
	TypeRoomClosed     = "room_closed"
	TypeError          = "error"
	TypePing           = "ping"
	TypePong           = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed Message. Marshal failures are
// programming errors on our own payload structs, so they surface as an
// empty payload rather than an error return.
func NewMessage(msgType string, payload interface{}) Message {
	msg := Message{Type: msgType}
	if payload != nil {
		msg.Payload, _ = json.Marshal(payload)
	}
	return msg
}

// Client Messages (incoming)

type StudentJoinPayload struct {
	DisplayName string `json:"display_name"`
}

type StudentBuzzPayload struct {
	ParticipantID string `json:"participant_id"`
	ClientSentAt  int64  `json:"client_sent_at"` // unix millis, informational only
}

type StudentAnswerPayload struct {
	ParticipantID string `json:"participant_id"`
	Answer        string `json:"answer"`
	OptionIndex   int    `json:"option_index"`
}

type HostStartMatchPayload struct {
	SetID              string `json:"set_id,omitempty"`
	Topic              string `json:"topic,omitempty"` // for generated sets
	QuestionCount      int    `json:"question_count,omitempty"`
	ContinueAfterWrong *bool  `json:"continue_after_wrong,omitempty"`
}

type HostJudgePayload struct {
	ParticipantID string `json:"participant_id"`
	Correct       bool   `json:"correct"`
}

type SetExplanationModePayload struct {
	Mode string `json:"mode"` // text, whiteboard, voice
}

type ToggleWhiteboardPayload struct {
	Active bool `json:"active"`
}

// DrawStrokePayload carries one normalized whiteboard stroke segment.
// Coordinates are fractions of canvas size so clients can scale freely.
type DrawStrokePayload struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Color string  `json:"color"`
	Size  int     `json:"size"`
}

// Server Messages (outgoing)

// SessionView is the client-facing projection of the authoritative session.
// Question answers and explanations are withheld until the host reveals them.
type SessionView struct {
	RoomCode             string         `json:"room_code"`
	Status               string         `json:"status"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	QuestionCount        int            `json:"question_count"`
	CurrentQuestion      *QuestionView  `json:"current_question,omitempty"`
	TimerRemaining       int            `json:"timer_remaining"`
	TimerRunning         bool           `json:"timer_running"`
	BuzzedParticipantID  string         `json:"buzzed_participant_id,omitempty"`
	ExplanationMode      string         `json:"explanation_mode"`
	WhiteboardActive     bool           `json:"whiteboard_active"`
	Explanation          string         `json:"explanation,omitempty"` // set while EXPLAINING
	CorrectAnswer        string         `json:"correct_answer,omitempty"`
}

type QuestionView struct {
	Index     int      `json:"index"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content"`
	Type      string   `json:"type"`
	Options   []string `json:"options,omitempty"`
	TimeLimit int      `json:"time_limit"`
	ImageURL  string   `json:"image_url,omitempty"`
}

type ParticipantView struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"display_name"`
	Score                int    `json:"score"`
	Status               string `json:"status"`
	LockedOutForQuestion bool   `json:"locked_out_for_question"`

	// Answers maps question index to the submitted answer text, feeding
	// the host's answer-history table.
	Answers map[int]string `json:"answers,omitempty"`
}

// SyncStatePayload is the full authoritative replace: session plus roster.
type SyncStatePayload struct {
	Session SessionView       `json:"session"`
	Roster  []ParticipantView `json:"roster"`
}

// PresenceUpdatePayload reports the current membership of a room whenever
// it changes. Keys carry the `{name}_{suffix}` shape; HostPresent lets
// students detect host loss without parsing keys.
type PresenceUpdatePayload struct {
	RoomCode    string   `json:"room_code"`
	Keys        []string `json:"keys"`
	HostPresent bool     `json:"host_present"`
}

type RoomClosedPayload struct {
	RoomCode string `json:"room_code"`
	Reason   string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
