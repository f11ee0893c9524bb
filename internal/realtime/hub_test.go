package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmenichole/tiltcheck/internal/tilt"
)

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	h := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	cl := &client{hub: h, send: make(chan []byte, 8)}
	h.register <- cl

	h.ScoreUpdated(&tilt.Session{ID: "sess_1", UserID: "u1", TiltScore: 4.2})

	select {
	case payload := <-cl.send:
		var ev Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		assert.Equal(t, "score_update", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHubFiltersByUser(t *testing.T) {
	h := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	mine := &client{hub: h, send: make(chan []byte, 8), userID: "u1"}
	other := &client{hub: h, send: make(chan []byte, 8), userID: "u2"}
	h.register <- mine
	h.register <- other

	h.ScoreUpdated(&tilt.Session{ID: "sess_1", UserID: "u1"})

	select {
	case <-mine.send:
	case <-time.After(time.Second):
		t.Fatal("filtered client did not receive its event")
	}

	select {
	case <-other.send:
		t.Fatal("event leaked to another user's client")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeWSRoundtrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	router := gin.New()
	router.GET("/v1/ws", h.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// Registration races the broadcast; retry until the client is in.
	require.Eventually(t, func() bool {
		h.ScoreUpdated(&tilt.Session{ID: "sess_1", UserID: "u1", TiltScore: 2.5})
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return false
		}
		var ev Event
		return json.Unmarshal(payload, &ev) == nil && ev.Type == "score_update"
	}, 3*time.Second, 50*time.Millisecond)
}
