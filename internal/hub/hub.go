package hub

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrTripAccessDenied is returned when a session subscribes to a trip it is
// not a party to.
var ErrTripAccessDenied = errors.New("user has no access to this trip")

// AccessChecker re-verifies, at subscribe time, that a user is still a party
// to a trip.
type AccessChecker interface {
	UserHasAccessToTrip(ctx context.Context, tripID, userID string) (bool, error)
}

// Session is one connected client. Send is best-effort; a failed send is the
// recipient's loss, never the publisher's error.
type Session interface {
	ID() string
	UserID() string
	Send(event string, data any) error
}

// Hub fans trip- and user-scoped events out to subscribed sessions. It keeps
// an explicit bidirectional index: sessions by ID, sessions per user channel,
// sessions per trip room and trips per session, so disconnecting a session
// removes it everywhere.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]Session
	userSessions map[string]map[string]Session
	tripRooms    map[string]map[string]Session
	sessionTrips map[string]map[string]bool
	access       AccessChecker
}

// NewHub creates a new Hub.
func NewHub(access AccessChecker) *Hub {
	return &Hub{
		sessions:     make(map[string]Session),
		userSessions: make(map[string]map[string]Session),
		tripRooms:    make(map[string]map[string]Session),
		sessionTrips: make(map[string]map[string]bool),
		access:       access,
	}
}

// Register adds a session and places it on its user's channel.
func (h *Hub) Register(session Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[session.ID()] = session

	if h.userSessions[session.UserID()] == nil {
		h.userSessions[session.UserID()] = make(map[string]Session)
	}
	h.userSessions[session.UserID()][session.ID()] = session
}

// Unregister removes a session from every room and channel it belonged to.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	delete(h.sessions, sessionID)

	if sessions := h.userSessions[session.UserID()]; sessions != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(h.userSessions, session.UserID())
		}
	}

	for tripID := range h.sessionTrips[sessionID] {
		h.leaveRoom(sessionID, tripID)
	}
	delete(h.sessionTrips, sessionID)
}

// SubscribeTrip places a session in a trip room after re-verifying the
// session's user is still a party to the trip.
func (h *Hub) SubscribeTrip(ctx context.Context, session Session, tripID string) error {
	allowed, err := h.access.UserHasAccessToTrip(ctx, tripID, session.UserID())
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTripAccessDenied
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// The session may have disconnected while the access check ran.
	if _, ok := h.sessions[session.ID()]; !ok {
		return nil
	}

	if h.tripRooms[tripID] == nil {
		h.tripRooms[tripID] = make(map[string]Session)
	}
	h.tripRooms[tripID][session.ID()] = session

	if h.sessionTrips[session.ID()] == nil {
		h.sessionTrips[session.ID()] = make(map[string]bool)
	}
	h.sessionTrips[session.ID()][tripID] = true

	return nil
}

// UnsubscribeTrip removes a session from a trip room.
func (h *Hub) UnsubscribeTrip(sessionID, tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoom(sessionID, tripID)

	if trips := h.sessionTrips[sessionID]; trips != nil {
		delete(trips, tripID)
	}
}

// leaveRoom must be called with the lock held.
func (h *Hub) leaveRoom(sessionID, tripID string) {
	room := h.tripRooms[tripID]
	if room == nil {
		return
	}

	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.tripRooms, tripID)
	}
}

// PublishTripEvent delivers an event to every session currently in the
// trip's room.
func (h *Hub) PublishTripEvent(tripID, event string, data any) {
	h.deliver(h.roomSessions(tripID), event, data)
}

// PublishUserEvent delivers an event to every session on the user's channel.
func (h *Hub) PublishUserEvent(userID, event string, data any) {
	h.mu.RLock()
	sessions := make([]Session, 0, len(h.userSessions[userID]))
	for _, session := range h.userSessions[userID] {
		sessions = append(sessions, session)
	}
	h.mu.RUnlock()

	h.deliver(sessions, event, data)
}

func (h *Hub) roomSessions(tripID string) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]Session, 0, len(h.tripRooms[tripID]))
	for _, session := range h.tripRooms[tripID] {
		sessions = append(sessions, session)
	}
	return sessions
}

// deliver sends outside the lock; a slow or broken session must not block
// publishers or other recipients.
func (h *Hub) deliver(sessions []Session, event string, data any) {
	for _, session := range sessions {
		if err := session.Send(event, data); err != nil {
			log.Printf("failed to deliver %s to session %s: %v", event, session.ID(), err)
		}
	}
}

// SessionCount reports the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
