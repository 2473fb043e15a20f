package printer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"resumepress/internal/config"
)

// fakeEngine speaks just enough of the DevTools wire protocol to stand in
// for the remote rendering engine: it answers every command, hands out fixed
// target and session ids and emits the target-destroyed event on tab close.
type fakeEngine struct {
	server *httptest.Server

	mu      sync.Mutex
	methods []string

	disconnected chan struct{}
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	engine := &fakeEngine{disconnected: make(chan struct{}, 4)}
	upgrader := websocket.Upgrader{}
	engine.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		engine.serve(conn)
		engine.disconnected <- struct{}{}
	}))
	t.Cleanup(engine.server.Close)
	return engine
}

func (e *fakeEngine) controlURL() string {
	return "ws://" + strings.TrimPrefix(e.server.URL, "http://")
}

func (e *fakeEngine) serve(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			ID        int    `json:"id"`
			Method    string `json:"method"`
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		e.record(msg.Method)

		result := json.RawMessage(`{}`)
		switch msg.Method {
		case "Browser.getVersion":
			result = json.RawMessage(`{"protocolVersion":"1.3","product":"FakeChrome/1.0","revision":"1","userAgent":"fake","jsVersion":"12"}`)
		case "Target.createTarget":
			result = json.RawMessage(`{"targetId":"fake-target"}`)
		case "Target.attachToTarget":
			result = json.RawMessage(`{"sessionId":"fake-session"}`)
		}

		reply := map[string]any{"id": msg.ID, "result": result}
		if msg.SessionID != "" {
			reply["sessionId"] = msg.SessionID
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}

		if msg.Method == "Page.close" || msg.Method == "Target.closeTarget" {
			event := map[string]any{
				"method": "Target.targetDestroyed",
				"params": map[string]any{"targetId": "fake-target"},
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func (e *fakeEngine) record(method string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.methods = append(e.methods, method)
}

func (e *fakeEngine) calls(method string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, m := range e.methods {
		if m == method {
			count++
		}
	}
	return count
}

func (e *fakeEngine) waitDisconnect(t *testing.T) {
	t.Helper()
	select {
	case <-e.disconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("control connection still open")
	}
}

func TestVersionDisconnects(t *testing.T) {
	engine := newFakeEngine(t)
	manager := NewSessionManager(config.PrinterConfig{ChromeURL: engine.controlURL()}, discardLogger())

	version, err := manager.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != "FakeChrome/1.0" {
		t.Errorf("version = %q, want %q", version, "FakeChrome/1.0")
	}

	engine.waitDisconnect(t)
}

func TestSessionCloseReleasesTabAndConnection(t *testing.T) {
	engine := newFakeEngine(t)
	manager := NewSessionManager(config.PrinterConfig{ChromeURL: engine.controlURL()}, discardLogger())

	sess, err := manager.AcquireSession(context.Background())
	if err != nil {
		t.Fatalf("acquire session: %v", err)
	}
	if sess.Page() == nil {
		t.Fatal("session has no page")
	}

	sess.Close()
	engine.waitDisconnect(t)

	if got := engine.calls("Target.createTarget"); got != 1 {
		t.Errorf("created %d tabs, want 1", got)
	}
	if got := engine.calls("Page.close") + engine.calls("Target.closeTarget"); got != 1 {
		t.Errorf("closed %d tabs, want 1", got)
	}
	if got := engine.calls("Browser.close"); got != 0 {
		t.Errorf("shared engine was shut down %d times", got)
	}
}

func TestAcquireSessionUnreachableEngine(t *testing.T) {
	manager := NewSessionManager(config.PrinterConfig{ChromeURL: "ws://127.0.0.1:1"}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := manager.AcquireSession(ctx)
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if code := ErrorCode(err); code != CodeBrowserUnavailable {
		t.Errorf("error code = %q, want %q", code, CodeBrowserUnavailable)
	}
}
