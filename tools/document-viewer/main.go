// Document Viewer - live display of finished transcription documents.
// Consumes the document and failure topics and pushes each event to
// connected browsers over WebSocket.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

//go:embed static/*
var staticFiles embed.FS

type tag struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	StartIdx *int   `json:"start_idx"`
	EndIdx   *int   `json:"end_idx"`
}

type block struct {
	Text string `json:"text"`
	Tags []tag  `json:"tags"`
}

type document struct {
	Blocks []block `json:"blocks"`
}

// Event is one message from either topic. Document is set for completed
// documents, Reason for failed jobs.
type Event struct {
	EventType       string    `json:"eventType"`
	TranscriptionID string    `json:"transcriptionId"`
	Provider        string    `json:"provider"`
	Timestamp       int64     `json:"timestamp"`
	TagCount        int       `json:"tagCount,omitempty"`
	Document        *document `json:"document,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

// Highlight is a tag resolved to the text it covers.
type Highlight struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
}

// View is what the browser receives.
type View struct {
	Event
	Text       string         `json:"text,omitempty"`
	KindCounts map[string]int `json:"kindCounts,omitempty"`
	Highlights []Highlight    `json:"highlights,omitempty"`
}

// newView resolves tag spans against the block text. Offsets are runes.
func newView(ev Event) View {
	v := View{Event: ev}
	if ev.Document == nil || len(ev.Document.Blocks) == 0 {
		return v
	}
	b := ev.Document.Blocks[0]
	runes := []rune(b.Text)
	v.Text = b.Text
	v.KindCounts = make(map[string]int)

	for _, t := range b.Tags {
		v.KindCounts[t.Kind]++
		if t.Kind == "timestamp" {
			continue
		}
		h := Highlight{Kind: t.Kind, Name: t.Name}
		if t.StartIdx != nil && t.EndIdx != nil && *t.StartIdx >= 0 && *t.StartIdx <= *t.EndIdx && *t.EndIdx <= len(runes) {
			h.Text = string(runes[*t.StartIdx:*t.EndIdx])
		}
		v.Highlights = append(v.Highlights, h)
	}
	// The browser only needs the resolved view.
	v.Document = nil
	return v
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan View
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan View, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected. Total: %d", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client disconnected. Total: %d", n)

		case view := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(view); err != nil {
					log.Printf("Write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.register <- conn

		// Keep connection alive, handle disconnects
		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic string) {
	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)); err != nil {
		log.Printf("Could not rewind %s, reading from the start: %v", topic, err)
	}

	log.Printf("Consuming from Kafka topic: %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			continue
		}

		view := newView(event)
		log.Printf("Received %s for %s: %s", event.EventType, event.TranscriptionID, truncate(view.Text+event.Reason, 40))
		hub.broadcast <- view
	}
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicDocuments := flag.String("topic-documents", "transcription.document.completed", "Completed document topic")
	topicFailures := flag.String("topic-failures", "transcription.job.failed", "Failed job topic")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newHub()
	go hub.run(ctx)

	go consumeKafka(ctx, hub, *brokers, *topicDocuments)
	go consumeKafka(ctx, hub, *brokers, *topicFailures)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("static files: %v", err)
	}
	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", wsHandler(hub))

	log.Printf("Document Viewer starting on http://localhost:%s", *port)
	log.Printf("   Kafka brokers: %s", *brokers)
	log.Printf("   Topics: %s, %s", *topicDocuments, *topicFailures)

	if err := http.ListenAndServe(":"+*port, nil); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
