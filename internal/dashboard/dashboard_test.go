package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fewrick/jpamb/internal/interp"
)

func httpHandler(b *Broadcaster) http.Handler {
	return http.HandlerFunc(b.handleWS)
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	b := New()
	srv := httptest.NewServer(httpHandler(b))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the server register the client

	sink := Sink{B: b}
	sink.Iteration(1, "(1, 2)", interp.Ok, true, 3)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if ev.Index != 1 || ev.Args != "(1, 2)" || ev.Outcome != string(interp.Ok) || !ev.NewCoverage || ev.CoveredCount != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestBroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	b := New()
	b.broadcast(Event{Index: 1})
}
