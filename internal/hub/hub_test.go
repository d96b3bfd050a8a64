package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeSession struct {
	id     string
	userID string

	mu       sync.Mutex
	received []string
	sendErr  error
}

func newFakeSession(id, userID string) *fakeSession {
	return &fakeSession{id: id, userID: userID}
}

func (s *fakeSession) ID() string     { return s.id }
func (s *fakeSession) UserID() string { return s.userID }

func (s *fakeSession) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received = append(s.received, event)
	return nil
}

func (s *fakeSession) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(s.received))
	copy(result, s.received)
	return result
}

// allowAccess grants trip access to the listed user IDs, or to everyone
// when no list is given.
type allowAccess struct {
	users map[string]bool
}

func (a allowAccess) UserHasAccessToTrip(ctx context.Context, tripID, userID string) (bool, error) {
	if a.users == nil {
		return true, nil
	}
	return a.users[userID], nil
}

func allowAll() allowAccess {
	return allowAccess{}
}

func allow(userIDs ...string) allowAccess {
	users := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	return allowAccess{users: users}
}

func TestHub_SubscribeDeniedWithoutAccess(t *testing.T) {
	t.Parallel()

	h := NewHub(allow("rider"))
	session := newFakeSession("s1", "stranger")
	h.Register(session)

	err := h.SubscribeTrip(context.Background(), session, "trip-1")
	if !errors.Is(err, ErrTripAccessDenied) {
		t.Fatalf("expected ErrTripAccessDenied, got %v", err)
	}

	h.PublishTripEvent("trip-1", "trip_status_changed", nil)
	if len(session.events()) != 0 {
		t.Error("expected denied session to receive nothing")
	}
}

func TestHub_TripEventsReachOnlyRoomMembers(t *testing.T) {
	t.Parallel()

	h := NewHub(allow("rider", "driver"))
	rider := newFakeSession("s1", "rider")
	driver := newFakeSession("s2", "driver")
	bystander := newFakeSession("s3", "driver")

	for _, s := range []*fakeSession{rider, driver, bystander} {
		h.Register(s)
	}
	if err := h.SubscribeTrip(context.Background(), rider, "trip-1"); err != nil {
		t.Fatalf("subscribe rider: %v", err)
	}
	if err := h.SubscribeTrip(context.Background(), driver, "trip-1"); err != nil {
		t.Fatalf("subscribe driver: %v", err)
	}

	h.PublishTripEvent("trip-1", "trip_status_changed", map[string]string{"status": "IN_PROGRESS"})

	if got := rider.events(); len(got) != 1 || got[0] != "trip_status_changed" {
		t.Errorf("rider: expected one trip_status_changed, got %v", got)
	}
	if got := driver.events(); len(got) != 1 {
		t.Errorf("driver: expected one event, got %v", got)
	}
	if got := bystander.events(); len(got) != 0 {
		t.Errorf("bystander: expected no events, got %v", got)
	}
}

func TestHub_UserEventsReachEverySessionOfUser(t *testing.T) {
	t.Parallel()

	h := NewHub(allowAll())
	phone := newFakeSession("s1", "rider")
	laptop := newFakeSession("s2", "rider")
	other := newFakeSession("s3", "driver")

	for _, s := range []*fakeSession{phone, laptop, other} {
		h.Register(s)
	}

	h.PublishUserEvent("rider", "notification", nil)

	if len(phone.events()) != 1 || len(laptop.events()) != 1 {
		t.Error("expected both of the user's sessions to receive the event")
	}
	if len(other.events()) != 0 {
		t.Error("expected other users to receive nothing")
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	h := NewHub(allow("rider"))
	session := newFakeSession("s1", "rider")
	h.Register(session)
	if err := h.SubscribeTrip(context.Background(), session, "trip-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.UnsubscribeTrip("s1", "trip-1")
	h.PublishTripEvent("trip-1", "trip_status_changed", nil)

	if len(session.events()) != 0 {
		t.Error("expected no delivery after unsubscribe")
	}
}

func TestHub_UnregisterRemovesFromRoomsAndChannels(t *testing.T) {
	t.Parallel()

	h := NewHub(allow("rider"))
	session := newFakeSession("s1", "rider")
	h.Register(session)
	if err := h.SubscribeTrip(context.Background(), session, "trip-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.Unregister("s1")

	h.PublishTripEvent("trip-1", "trip_status_changed", nil)
	h.PublishUserEvent("rider", "notification", nil)

	if len(session.events()) != 0 {
		t.Error("expected no delivery after unregister")
	}
	if h.SessionCount() != 0 {
		t.Errorf("expected 0 sessions, got %d", h.SessionCount())
	}
}

func TestHub_SubscribeAfterDisconnectIsNoop(t *testing.T) {
	t.Parallel()

	h := NewHub(allow("rider"))
	session := newFakeSession("s1", "rider")
	// Never registered: stands in for a session that disconnected while the
	// access check was running.
	if err := h.SubscribeTrip(context.Background(), session, "trip-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.PublishTripEvent("trip-1", "trip_status_changed", nil)
	if len(session.events()) != 0 {
		t.Error("expected no delivery to an unregistered session")
	}
}

func TestHub_BrokenSessionDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	h := NewHub(allow("rider", "driver"))
	broken := newFakeSession("s1", "rider")
	broken.sendErr = errors.New("connection reset")
	healthy := newFakeSession("s2", "driver")

	h.Register(broken)
	h.Register(healthy)
	if err := h.SubscribeTrip(context.Background(), broken, "trip-1"); err != nil {
		t.Fatalf("subscribe broken: %v", err)
	}
	if err := h.SubscribeTrip(context.Background(), healthy, "trip-1"); err != nil {
		t.Fatalf("subscribe healthy: %v", err)
	}

	h.PublishTripEvent("trip-1", "trip_status_changed", nil)

	if len(healthy.events()) != 1 {
		t.Error("expected healthy session to receive the event despite the broken one")
	}
}

func TestHub_ConcurrentSubscribePublishDisconnect(t *testing.T) {
	t.Parallel()

	h := NewHub(allowAll())

	const sessions = 16
	var wg sync.WaitGroup

	for i := 0; i < sessions; i++ {
		session := newFakeSession(fmt.Sprintf("s%d", i), fmt.Sprintf("user-%d", i))
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			h.Register(s)
			if err := h.SubscribeTrip(context.Background(), s, "trip-1"); err != nil {
				t.Errorf("subscribe: %v", err)
			}
			h.PublishTripEvent("trip-1", "trip_status_changed", nil)
			h.PublishUserEvent(s.UserID(), "notification", nil)
			h.Unregister(s.ID())
		}(session)
	}

	wg.Wait()

	if h.SessionCount() != 0 {
		t.Errorf("expected all sessions gone, got %d", h.SessionCount())
	}

	// A fresh session still works afterwards.
	late := newFakeSession("late", "user-late")
	h.Register(late)
	if err := h.SubscribeTrip(context.Background(), late, "trip-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	h.PublishTripEvent("trip-1", "trip_status_changed", nil)
	if len(late.events()) != 1 {
		t.Error("expected the late session to receive the event")
	}
}
