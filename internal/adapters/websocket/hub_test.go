package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID, role string, buffer int) *Client {
	return &Client{
		hub:      h,
		send:     make(chan []byte, buffer),
		identity: Identity{UserID: userID, Role: role},
	}
}

func TestHub_RoutesByRoleAndUser(t *testing.T) {
	h := NewHub(zerolog.Nop())
	worker := newTestClient(h, "hw-1", RoleHealthWorker, 4)
	patient := newTestClient(h, "patient-1", "PATIENT", 4)
	other := newTestClient(h, "patient-2", "PATIENT", 4)
	for _, c := range []*Client{worker, patient, other} {
		h.clients[c] = true
		if c.isHealthWorker() {
			h.healthWorkers[c] = true
		}
	}

	assert.Equal(t, 1, h.BroadcastToHealthWorkers([]byte("alert")))
	assert.Equal(t, 1, h.SendToUser("patient-1", []byte("yours")))
	assert.Equal(t, 0, h.SendToUser("nobody", []byte("lost")))

	assert.Equal(t, "alert", string(<-worker.send))
	assert.Equal(t, "yours", string(<-patient.send))
	assert.Empty(t, other.send)
}

func TestHub_DropsSlowClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	var mu sync.Mutex
	connected := 0
	h.ObserveConnections(func(role string, delta float64) {
		mu.Lock()
		defer mu.Unlock()
		connected += int(delta)
	})

	slow := newTestClient(h, "hw-1", RoleHealthWorker, 1)
	h.clients[slow] = true
	h.healthWorkers[slow] = true
	connected = 1

	assert.Equal(t, 1, h.BroadcastToHealthWorkers([]byte("first")))
	assert.Equal(t, 0, h.BroadcastToHealthWorkers([]byte("second")))
	assert.Equal(t, 0, h.ConnectedHealthWorkers())
	assert.Equal(t, 0, connected)

	// the buffered message is still readable, then the channel is closed
	assert.Equal(t, "first", string(<-slow.send))
	_, open := <-slow.send
	assert.False(t, open)
}

func TestHub_RunRemovesClientsOnShutdown(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	worker := newTestClient(h, "hw-1", RoleHealthWorker, 1)
	h.register <- worker
	assert.Eventually(t, func() bool { return h.ConnectedHealthWorkers() == 1 }, time.Second, 10*time.Millisecond)

	h.unregister <- worker
	assert.Eventually(t, func() bool { return h.ConnectedHealthWorkers() == 0 }, time.Second, 10*time.Millisecond)

	// unregistering twice must not close the channel again
	h.unregister <- worker

	again := newTestClient(h, "hw-2", RoleHealthWorker, 1)
	h.register <- again
	cancel()
	<-done
	assert.Equal(t, 0, h.ConnectedHealthWorkers())
}

func TestHub_ServeDeliversOverWebsocket(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn, Identity{UserID: r.URL.Query().Get("user"), Role: RoleHealthWorker})
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=hw-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ConnectedHealthWorkers() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.BroadcastToHealthWorkers([]byte(`{"type":"labor_alert"}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"labor_alert"}`, string(message))

	conn.Close()
	assert.Eventually(t, func() bool { return h.ConnectedHealthWorkers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
