package ws

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/realtime"
)

func dialTestServer(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "?name=" + url.QueryEscape(name)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForOnline polls until the controller reports n connections.
func waitForOnline(t *testing.T, ctrl *realtime.Controller, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.OnlineCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("OnlineCount() = %d, want %d", ctrl.OnlineCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandler_ConnectCleansDisplayName(t *testing.T) {
	ctrl := realtime.NewController(zerolog.Nop())
	h := NewHandler(ctrl, nil, zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	dialTestServer(t, srv, "  ali\nce\x00  ")
	waitForOnline(t, ctrl, 1)

	users := ctrl.Online()
	if len(users) != 1 || users[0].Name != "alice" {
		t.Errorf("Online() = %+v, want one user named alice", users)
	}
}

func TestHandler_ConnectEmptyNameGetsDefault(t *testing.T) {
	ctrl := realtime.NewController(zerolog.Nop())
	h := NewHandler(ctrl, nil, zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	dialTestServer(t, srv, "   ")
	waitForOnline(t, ctrl, 1)

	users := ctrl.Online()
	if len(users) != 1 || users[0].Name != realtime.DefaultDisplayName {
		t.Errorf("Online() = %+v, want one user named %s", users, realtime.DefaultDisplayName)
	}
}

func TestHandler_OriginCheck(t *testing.T) {
	ctrl := realtime.NewController(zerolog.Nop())
	h := NewHandler(ctrl, []string{"https://parley.example"}, zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(u, header); err == nil {
		t.Error("Dial() with disallowed origin succeeded, want handshake failure")
	} else if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("handshake status = %d, want 403", resp.StatusCode)
	}
}
