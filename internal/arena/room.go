package arena

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already open")
	ErrRoomFull     = errors.New("room is full")
	ErrNotRoomHost  = errors.New("room belongs to another host")
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomManager owns the live sessions on this instance: one Session actor
// per open room code, plus lifecycle (open, lookup, close).
type RoomManager struct {
	logger     zerolog.Logger
	pub        Publisher
	scores     ScoreSink
	metrics    *Metrics
	clock      clockwork.Clock
	maxPlayers int

	mu    sync.RWMutex
	rooms map[string]*openRoom
}

type openRoom struct {
	session *Session
	hostID  string
	cancel  context.CancelFunc
}

// NewRoomManager wires the session collaborators shared by every room.
func NewRoomManager(pub Publisher, scores ScoreSink, metrics *Metrics, clock clockwork.Clock, maxPlayers int, logger zerolog.Logger) *RoomManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RoomManager{
		logger:     logger.With().Str("component", "rooms").Logger(),
		pub:        pub,
		scores:     scores,
		metrics:    metrics,
		clock:      clock,
		maxPlayers: maxPlayers,
		rooms:      make(map[string]*openRoom),
	}
}

// OpenRoom creates a session in the lobby state and starts its run loop.
// The code is minted here unless the host supplies one (room re-open after
// a crash keeps the code students already have).
func (m *RoomManager) OpenRoom(ctx context.Context, hostID, code string, rules Rules) (string, *Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if code == "" {
		code = m.mintCode()
	} else {
		code = strings.ToUpper(code)
		if _, exists := m.rooms[code]; exists {
			return "", nil, ErrRoomExists
		}
	}

	sess := NewSession(code, rules, m.pub, m.logger, SessionOptions{
		Clock:   m.clock,
		Scores:  m.scores,
		Metrics: m.metrics,
	})
	runCtx, cancel := context.WithCancel(context.Background())
	go sess.Run(runCtx)
	m.rooms[code] = &openRoom{session: sess, hostID: hostID, cancel: cancel}

	if m.metrics != nil {
		m.metrics.RoomsOpen.Inc()
	}
	m.logger.Info().Str("room_code", code).Str("host_id", hostID).Msg("room opened")
	return code, sess, nil
}

// Lookup returns the session for a code.
func (m *RoomManager) Lookup(code string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.session, nil
}

// HostOf reports the host identity that opened the room.
func (m *RoomManager) HostOf(code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return "", ErrRoomNotFound
	}
	return room.hostID, nil
}

// AdmitJoin checks capacity before a student is handed to the session.
func (m *RoomManager) AdmitJoin(code string) (*Session, error) {
	sess, err := m.Lookup(code)
	if err != nil {
		return nil, err
	}
	n, err := sess.ParticipantCount()
	if err != nil {
		return nil, err
	}
	if m.maxPlayers > 0 && n >= m.maxPlayers {
		return nil, ErrRoomFull
	}
	return sess, nil
}

// CloseRoom stops the session actor and forgets the code.
func (m *RoomManager) CloseRoom(code string) error {
	code = strings.ToUpper(code)
	m.mu.Lock()
	room, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
	}
	m.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}
	room.cancel()
	if m.scores != nil {
		m.scores.Clear(code)
	}
	if m.metrics != nil {
		m.metrics.RoomsOpen.Dec()
	}
	m.logger.Info().Str("room_code", code).Msg("room closed")
	return nil
}

// Shutdown stops every session. Called on process exit.
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, room := range m.rooms {
		room.cancel()
		delete(m.rooms, code)
	}
}

// mintCode generates an unused 6-character upper alphanumeric code.
// Caller holds mu.
func (m *RoomManager) mintCode() string {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
		}
		code := string(b)
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}
