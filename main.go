package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"manhunt/server/internal/ai"
	"manhunt/server/logging"
	"manhunt/server/logging/ailog"
	"manhunt/server/logging/sinks"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	seed := flag.Int64("seed", 1, "world generation seed")
	agents := flag.Int("agents", 3, "number of hunter agents")
	debugFeed := flag.Bool("debug-feed", true, "include agent decision internals in broadcasts")
	logJSON := flag.String("log-json", "", "path for the ndjson event log (disabled when empty)")
	verbose := flag.Bool("verbose", false, "log debug-severity events")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *verbose {
		logCfg.MinimumSeverity = logging.SeverityDebug
	}

	named := []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout, logCfg.Console)},
	}
	if *logJSON != "" {
		file, err := os.OpenFile(*logJSON, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open event log %s: %v", *logJSON, err)
		}
		defer file.Close()
		named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(file, logCfg.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(nil, logCfg, named)
	if err != nil {
		log.Fatalf("failed to start event router: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		router.Close(ctx)
	}()

	pub := logging.WithFields(router, map[string]any{"runId": uuid.NewString()})

	lib := ai.MustLoadLibrary()
	for _, warning := range lib.Warnings() {
		ailog.ConfigWarning(context.Background(), pub, warning)
	}

	world, err := NewWorld(*seed, *agents, lib, pub)
	if err != nil {
		log.Fatalf("failed to build world: %v", err)
	}

	hub := newHub(world, *debugFeed)
	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	http.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		stats := router.Stats()
		payload := struct {
			Status        string              `json:"status"`
			ServerTime    int64               `json:"serverTime"`
			Tick          uint64              `json:"tick"`
			Targets       []diagnosticsTarget `json:"targets"`
			TickRate      int                 `json:"tickRate"`
			Heartbeat     int64               `json:"heartbeatMillis"`
			EventsRouted  uint64              `json:"eventsRouted"`
			EventsDropped uint64              `json:"eventsDropped"`
		}{
			Status:        "ok",
			ServerTime:    time.Now().UnixMilli(),
			Tick:          world.Tick(),
			Targets:       hub.DiagnosticsSnapshot(),
			TickRate:      tickRate,
			Heartbeat:     heartbeatInterval.Milliseconds(),
			EventsRouted:  stats.EventsTotal,
			EventsDropped: stats.DroppedTotal,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	http.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		join := hub.Join()
		data, err := json.Marshal(join)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		targetID := r.URL.Query().Get("id")
		if targetID == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed for %s: %v", targetID, err)
			return
		}

		sub, ok := hub.Subscribe(targetID, conn)
		if !ok {
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown target")
			conn.WriteMessage(websocket.CloseMessage, message)
			conn.Close()
			return
		}

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				hub.Disconnect(targetID)
				return
			}

			var msg clientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Printf("discarding malformed message from %s: %v", targetID, err)
				continue
			}

			switch msg.Type {
			case "input":
				if !hub.UpdateIntent(targetID, msg.DX, msg.DY) {
					log.Printf("input ignored for unknown target %s", targetID)
				}
			case "fire":
				hub.Fire(targetID, msg.X, msg.Y)
			case "reload":
				hub.Reload(targetID)
			case "heartbeat":
				now := time.Now()
				rtt, ok := hub.UpdateHeartbeat(targetID, now, msg.SentAt)
				if !ok {
					continue
				}
				ack := heartbeatMessage{
					Type:       "heartbeat",
					ServerTime: now.UnixMilli(),
					ClientTime: msg.SentAt,
					RTTMillis:  rtt.Milliseconds(),
				}
				data, err := json.Marshal(ack)
				if err != nil {
					log.Printf("failed to marshal heartbeat ack for %s: %v", targetID, err)
					continue
				}
				sub.mu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					sub.mu.Unlock()
					hub.Disconnect(targetID)
					return
				}
				sub.mu.Unlock()
			default:
				log.Printf("unknown message type %q from %s", msg.Type, targetID)
			}
		}
	})

	log.Printf("server listening on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
