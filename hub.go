package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"manhunt/server/internal/ai"
	"manhunt/server/internal/world"
)

type joinResponse struct {
	ID        string           `json:"id"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Width     float64          `json:"worldWidth"`
	Height    float64          `json:"worldHeight"`
	Obstacles []world.Obstacle `json:"obstacles"`
}

type stateMessage struct {
	Type       string           `json:"type"`
	Tick       uint64           `json:"tick"`
	Agents     []AgentSnapshot  `json:"agents"`
	Targets    []TargetSnapshot `json:"targets"`
	Debug      []ai.DebugState  `json:"debug,omitempty"`
	ServerTime int64            `json:"serverTime"`
}

type clientMessage struct {
	Type   string  `json:"type"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	SentAt int64   `json:"sentAt"`
}

type heartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type sessionState struct {
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

type diagnosticsTarget struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// Hub owns the world and the connected target sessions. The simulation loop,
// message handlers, and broadcasts all funnel through its mutex.
type Hub struct {
	mu          sync.Mutex
	world       *World
	sessions    map[string]*sessionState
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	debugFeed   bool
}

func newHub(w *World, debugFeed bool) *Hub {
	return &Hub{
		world:       w,
		sessions:    make(map[string]*sessionState),
		subscribers: make(map[string]*subscriber),
		debugFeed:   debugFeed,
	}
}

func (h *Hub) snapshotLocked(now time.Time) stateMessage {
	agents, targets := h.world.Snapshot()
	msg := stateMessage{
		Type:       "state",
		Tick:       h.world.Tick(),
		Agents:     agents,
		Targets:    targets,
		ServerTime: now.UnixMilli(),
	}
	if h.debugFeed {
		msg.Debug = h.world.DebugSnapshots(now)
	}
	return msg
}

func (h *Hub) broadcastState(msg stateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal state message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			log.Printf("failed to send update to %s: %v", id, err)
			h.Disconnect(id)
		}
	}
}

// Join spawns a new target and returns its starting view of the arena.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	targetID := fmt.Sprintf("target-%d", id)

	h.mu.Lock()
	spawn := h.world.AddTarget(targetID)
	h.sessions[targetID] = &sessionState{lastHeartbeat: time.Now()}
	obstacles := h.world.Obstacles()
	h.mu.Unlock()

	return joinResponse{
		ID:        targetID,
		X:         spawn.X,
		Y:         spawn.Y,
		Width:     worldWidth,
		Height:    worldHeight,
		Obstacles: obstacles,
	}
}

func (h *Hub) Subscribe(targetID string, conn *websocket.Conn) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[targetID]
	if !ok {
		return nil, false
	}
	session.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[targetID]; ok {
		existing.conn.Close()
	}
	sub := &subscriber{conn: conn}
	h.subscribers[targetID] = sub
	return sub, true
}

func (h *Hub) Disconnect(targetID string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[targetID]
	if subOK {
		delete(h.subscribers, targetID)
	}
	if _, ok := h.sessions[targetID]; ok {
		delete(h.sessions, targetID)
		h.world.RemoveTarget(targetID)
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
}

func (h *Hub) UpdateIntent(targetID string, dx, dy float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.SetTargetIntent(targetID, dx, dy)
}

func (h *Hub) Fire(targetID string, x, y float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.TargetFire(targetID, x, y, time.Now())
}

func (h *Hub) Reload(targetID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.TargetReload(targetID, time.Now())
}

func (h *Hub) UpdateHeartbeat(targetID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[targetID]
	if !ok {
		return 0, false
	}
	session.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			session.lastRTT = rtt
		}
	}
	return session.lastRTT, true
}

// advance runs one simulation tick under the lock and returns the broadcast
// snapshot plus any sessions dropped for missed heartbeats.
func (h *Hub) advance(now time.Time, dt float64) (stateMessage, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dropped []string
	for id, session := range h.sessions {
		if now.Sub(session.lastHeartbeat) > disconnectAfter {
			dropped = append(dropped, id)
		}
	}

	h.world.Step(now, dt)
	return h.snapshotLocked(now), dropped
}

// RunSimulation drives the fixed-rate tick loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}
			last = now

			snapshot, dropped := h.advance(now, dt)
			for _, id := range dropped {
				log.Printf("disconnecting %s due to heartbeat timeout", id)
				h.Disconnect(id)
			}
			h.broadcastState(snapshot)
		}
	}
}

func (h *Hub) DiagnosticsSnapshot() []diagnosticsTarget {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]diagnosticsTarget, 0, len(h.sessions))
	for id, session := range h.sessions {
		out = append(out, diagnosticsTarget{
			ID:            id,
			LastHeartbeat: session.lastHeartbeat.UnixMilli(),
			RTTMillis:     session.lastRTT.Milliseconds(),
		})
	}
	return out
}
