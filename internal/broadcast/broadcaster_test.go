package broadcast

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/emergency-alerts/internal/application"
)

func testEvent(alertID string, version int64) application.Event {
	kind := application.EventCreated
	if version > 1 {
		kind = application.EventResolved
	}
	return application.Event{
		Kind:  kind,
		Alert: application.Alert{ID: alertID, Version: version},
	}
}

func receiveEvent(t *testing.T, session *Session) application.Event {
	t.Helper()
	select {
	case event := <-session.Events():
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for an event on session %s", session.ID())
		return application.Event{}
	}
}

func TestBroadcaster_FansOutToEverySession(t *testing.T) {
	broadcaster := New(8, nil)
	first := broadcaster.Open("session-1")
	second := broadcaster.Open("session-2")

	broadcaster.Publish(testEvent("alert-1", 1))

	for _, session := range []*Session{first, second} {
		event := receiveEvent(t, session)
		if event.Alert.ID != "alert-1" || event.Alert.Version != 1 {
			t.Fatalf("session %s received %+v", session.ID(), event)
		}
	}
}

func TestBroadcaster_PreservesPerAlertOrder(t *testing.T) {
	broadcaster := New(8, nil)
	session := broadcaster.Open("session-1")

	broadcaster.Publish(testEvent("alert-1", 1))
	broadcaster.Publish(testEvent("alert-1", 2))

	if event := receiveEvent(t, session); event.Alert.Version != 1 {
		t.Fatalf("expected version 1 first, got %d", event.Alert.Version)
	}
	if event := receiveEvent(t, session); event.Alert.Version != 2 {
		t.Fatalf("expected version 2 second, got %d", event.Alert.Version)
	}
}

func TestBroadcaster_SlowSessionIsForcedIntoResync(t *testing.T) {
	broadcaster := New(2, nil)
	slow := broadcaster.Open("slow")
	healthy := broadcaster.Open("healthy")

	// Fill the slow session's queue and push one event past its capacity.
	// The healthy session has the same capacity but is drained below.
	for version := int64(1); version <= 2; version++ {
		broadcaster.Publish(testEvent("alert-1", version))
		receiveEvent(t, healthy)
	}

	done := make(chan struct{})
	go func() {
		broadcaster.Publish(testEvent("alert-2", 1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full session queue")
	}

	select {
	case <-slow.ResyncRequests():
	default:
		t.Fatalf("expected a resync request for the overflowed session")
	}
	select {
	case event := <-slow.Events():
		t.Fatalf("expected the slow session's buffer to be dropped, got %+v", event)
	default:
	}

	if event := receiveEvent(t, healthy); event.Alert.ID != "alert-2" {
		t.Fatalf("healthy session missed the event, got %+v", event)
	}
}

func TestBroadcaster_OpenReplacesExistingSession(t *testing.T) {
	broadcaster := New(8, nil)
	stale := broadcaster.Open("session-1")
	fresh := broadcaster.Open("session-1")

	if stale.State() != StateDisconnected {
		t.Fatalf("expected the replaced session to be disconnected, got %s", stale.State())
	}
	select {
	case <-stale.Done():
	default:
		t.Fatalf("expected Done to be closed on the replaced session")
	}
	if broadcaster.SessionCount() != 1 {
		t.Fatalf("expected a single registered session, got %d", broadcaster.SessionCount())
	}

	broadcaster.Publish(testEvent("alert-1", 1))
	if event := receiveEvent(t, fresh); event.Alert.ID != "alert-1" {
		t.Fatalf("fresh session missed the event, got %+v", event)
	}
	select {
	case event := <-stale.Events():
		t.Fatalf("disconnected session must not receive events, got %+v", event)
	default:
	}
}

func TestBroadcaster_CloseStopsDelivery(t *testing.T) {
	broadcaster := New(8, nil)
	session := broadcaster.Open("session-1")
	broadcaster.Close("session-1")

	if broadcaster.SessionCount() != 0 {
		t.Fatalf("expected no registered sessions, got %d", broadcaster.SessionCount())
	}
	broadcaster.Publish(testEvent("alert-1", 1))
	select {
	case event := <-session.Events():
		t.Fatalf("closed session must not receive events, got %+v", event)
	default:
	}

	// Closing twice is harmless.
	broadcaster.Close("session-1")
}

func TestBroadcaster_ConcurrentPublishAndLifecycle(t *testing.T) {
	broadcaster := New(4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		sessionID := fmt.Sprintf("session-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			broadcaster.Open(sessionID)
			broadcaster.Close(sessionID)
		}()
		go func() {
			defer wg.Done()
			for version := int64(1); version <= 16; version++ {
				broadcaster.Publish(testEvent("alert-1", version))
			}
		}()
	}
	wg.Wait()

	if broadcaster.SessionCount() != 0 {
		t.Fatalf("expected all sessions to be closed, got %d", broadcaster.SessionCount())
	}
}

func TestSession_Lifecycle(t *testing.T) {
	session := newSession("session-1", 4)
	if session.State() != StateConnecting {
		t.Fatalf("expected a new session to be connecting, got %s", session.State())
	}

	session.BeginResync()
	if session.State() != StateResyncing {
		t.Fatalf("expected resyncing, got %s", session.State())
	}

	session.GoLive()
	if session.State() != StateLive {
		t.Fatalf("expected live, got %s", session.State())
	}

	// Overflow pushes a live session back through resync.
	session.BeginResync()
	if session.State() != StateResyncing {
		t.Fatalf("expected resyncing after overflow, got %s", session.State())
	}

	session.Disconnect()
	if session.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", session.State())
	}

	// Disconnected is terminal.
	session.BeginResync()
	session.GoLive()
	if session.State() != StateDisconnected {
		t.Fatalf("disconnected session changed state to %s", session.State())
	}
	session.Disconnect()
}

func TestSession_VersionDedup(t *testing.T) {
	session := newSession("session-1", 4)
	session.SeedVersions(map[string]int64{"alert-1": 2})

	if session.ShouldDeliver(testEvent("alert-1", 1)) {
		t.Fatalf("stale version must not be delivered")
	}
	if session.ShouldDeliver(testEvent("alert-1", 2)) {
		t.Fatalf("already-known version must not be delivered")
	}
	if !session.ShouldDeliver(testEvent("alert-1", 3)) {
		t.Fatalf("newer version must be delivered")
	}
	if !session.ShouldDeliver(testEvent("alert-2", 1)) {
		t.Fatalf("unknown alert must be delivered")
	}

	session.MarkDelivered("alert-1", 3)
	session.MarkDelivered("alert-1", 1)
	if versions := session.LastDeliveredVersions(); versions["alert-1"] != 3 {
		t.Fatalf("delivery watermark regressed: %v", versions)
	}

	// Seeding never lowers an already-delivered version either.
	session.SeedVersions(map[string]int64{"alert-1": 1})
	if versions := session.LastDeliveredVersions(); versions["alert-1"] != 3 {
		t.Fatalf("seeding lowered the watermark: %v", versions)
	}
}
