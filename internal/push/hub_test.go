package push

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, srv *httptest.Server, accountID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?account=" + accountID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("account"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHub_EmitReachesOnlyTargetAccount(t *testing.T) {
	hub := NewHub(newNoopLogger())
	srv := newTestServer(t, hub)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	require.Eventually(t, func() bool {
		return hub.Connections("alice") == 1 && hub.Connections("bob") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Emit("alice", models.Event{Type: models.EventSubscription, Data: map[string]int64{"subscriptionId": 7}})

	var got map[string]any
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, "subscription", got["type"])
	assert.Equal(t, float64(7), got["data"].(map[string]any)["subscriptionId"])

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	require.Error(t, err)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := NewHub(newNoopLogger())
	srv := newTestServer(t, hub)

	conn := dial(t, srv, "carol")
	require.Eventually(t, func() bool { return hub.Connections("carol") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections("carol") == 0 }, time.Second, 10*time.Millisecond)

	hub.Emit("carol", models.Event{Type: models.EventGazette})
}
