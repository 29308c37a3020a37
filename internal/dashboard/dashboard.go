// Package dashboard serves a one-way WebSocket broadcast of fuzz
// iteration events, opt in via "-dashboard :PORT" (§6). The CLI layer
// wires it in as a fuzz.Sink; the fuzz loop itself never imports this
// package.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fewrick/jpamb/internal/fuzz"
	"github.com/fewrick/jpamb/internal/interp"
)

// Event is one fuzz iteration, rendered to JSON for the browser.
type Event struct {
	Index        int    `json:"index"`
	Args         string `json:"args"`
	Outcome      string `json:"outcome"`
	NewCoverage  bool   `json:"newCoverage"`
	CoveredCount int    `json:"coveredCount"`
}

// SummaryEvent closes out a campaign.
type SummaryEvent struct {
	Method       string `json:"method"`
	Iterations   int    `json:"iterations"`
	Covered      int    `json:"covered"`
	TotalOffsets int    `json:"totalOffsets"`
	FullCoverage bool   `json:"fullCoverage"`
	StalledOut   bool   `json:"stalledOut"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster fans fuzz events out to every connected client. Clients
// only ever receive; nothing they send is read back.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	server  *http.Server
}

func New() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]bool)}
}

func (b *Broadcaster) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	go func() {
		defer b.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	conn.Close()
}

func (b *Broadcaster) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			b.drop(c)
		}
	}
}

// Serve starts the HTTP/WebSocket listener on addr (e.g. ":8787") and
// blocks until the context is cancelled.
func (b *Broadcaster) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	b.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- b.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return b.server.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Sink adapts a Broadcaster to fuzz.Sink so the CLI can pass it straight
// into fuzz.New.
type Sink struct{ B *Broadcaster }

func (s Sink) Iteration(index int, args string, outcome interp.Outcome, newCoverage bool, coveredCount int) {
	s.B.broadcast(Event{Index: index, Args: args, Outcome: string(outcome), NewCoverage: newCoverage, CoveredCount: coveredCount})
}

func (s Sink) Summary(r fuzz.Result) {
	s.B.broadcast(SummaryEvent{
		Method:       r.Method.String(),
		Iterations:   r.Iterations,
		Covered:      len(r.Covered),
		TotalOffsets: r.TotalOffsets,
		FullCoverage: r.FullCoverage,
		StalledOut:   r.StalledOut,
	})
}
