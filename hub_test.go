package main

import (
	"testing"
	"time"

	"manhunt/server/internal/ai"
	"manhunt/server/logging"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	lib := ai.MustLoadLibrary()
	w, err := NewWorld(42, 2, lib, logging.NopPublisher())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return newHub(w, true)
}

func TestHubJoinSpawnsTarget(t *testing.T) {
	hub := testHub(t)

	join := hub.Join()
	if join.ID == "" {
		t.Fatalf("join returned empty id")
	}
	if join.Width != worldWidth || join.Height != worldHeight {
		t.Fatalf("join dimensions = %vx%v", join.Width, join.Height)
	}

	snapshot, _ := hub.advance(time.Now(), 1.0/tickRate)
	if len(snapshot.Targets) != 1 || snapshot.Targets[0].ID != join.ID {
		t.Fatalf("targets = %+v, want the joined target", snapshot.Targets)
	}
	if len(snapshot.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(snapshot.Agents))
	}
	if len(snapshot.Debug) != 2 {
		t.Fatalf("debug feed = %d entries, want one per agent", len(snapshot.Debug))
	}
}

func TestHubJoinIDsAreUnique(t *testing.T) {
	hub := testHub(t)
	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		join := hub.Join()
		if _, dup := seen[join.ID]; dup {
			t.Fatalf("duplicate target id %s", join.ID)
		}
		seen[join.ID] = struct{}{}
	}
}

func TestHubIntentForUnknownTarget(t *testing.T) {
	hub := testHub(t)
	if hub.UpdateIntent("target-999", 1, 0) {
		t.Fatalf("intent accepted for a target that never joined")
	}
}

func TestHubDisconnectRemovesTarget(t *testing.T) {
	hub := testHub(t)
	join := hub.Join()

	hub.Disconnect(join.ID)

	snapshot, _ := hub.advance(time.Now(), 1.0/tickRate)
	if len(snapshot.Targets) != 0 {
		t.Fatalf("targets = %+v, want none after disconnect", snapshot.Targets)
	}
	if hub.UpdateIntent(join.ID, 1, 0) {
		t.Fatalf("intent accepted after disconnect")
	}
}

func TestHubHeartbeatTimeoutFlagsSession(t *testing.T) {
	hub := testHub(t)
	join := hub.Join()

	now := time.Now().Add(disconnectAfter + time.Second)
	_, dropped := hub.advance(now, 1.0/tickRate)
	if len(dropped) != 1 || dropped[0] != join.ID {
		t.Fatalf("dropped = %v, want the stale session", dropped)
	}
}

func TestHubHeartbeatTracksRTT(t *testing.T) {
	hub := testHub(t)
	join := hub.Join()

	received := time.Now()
	sent := received.Add(-40 * time.Millisecond).UnixMilli()
	rtt, ok := hub.UpdateHeartbeat(join.ID, received, sent)
	if !ok {
		t.Fatalf("heartbeat rejected for known target")
	}
	if rtt <= 0 || rtt > time.Second {
		t.Fatalf("rtt = %v, want a small positive duration", rtt)
	}
}
