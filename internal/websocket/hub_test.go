package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gscconsolidate/internal/operations"
	"gscconsolidate/internal/shared/testutil"
	"gscconsolidate/pkg/contracts/domain"
)

func startHub(t *testing.T, origins []string) (*Hub, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(origins, nil, logger)
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub, url := startHub(t, nil)

	a := dial(t, url)
	b := dial(t, url)
	assert.Equal(t, TypeConnection, readJSON(t, a)["type"])
	assert.Equal(t, TypeConnection, readJSON(t, b)["type"])
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(operations.Event{
		Type:        operations.EventComplete,
		OperationID: "op-1",
		Source:      "export.csv",
		Status:      operations.OperationStatusCompleted,
		Stats:       &domain.Stats{Pages: 2, KeywordsBefore: 3, KeywordsAfter: 2},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readJSON(t, conn)
		assert.Equal(t, operations.EventComplete, msg["type"])
		assert.Equal(t, "op-1", msg["operation_id"])
		assert.Equal(t, "completed", msg["status"])
		stats, ok := msg["stats"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(2), stats["pages"])
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, url := startHub(t, nil)

	conn := dial(t, url)
	readJSON(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_OriginCheck(t *testing.T) {
	_, url := startHub(t, []string{"http://localhost:3000"})

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"no origin", "", true},
		{"allowed origin", "http://localhost:3000", true},
		{"foreign origin", "http://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.ok {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, url := startHub(t, []string{"*"})

	conn := dial(t, url)
	readJSON(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Stop()
	assert.Zero(t, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	// Publishing after Stop is a no-op
	hub.Publish(operations.Event{Type: operations.EventStarted})
	hub.Stop()
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "HTTPS://APP.EXAMPLE")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://other.example")
	assert.False(t, check(r))

	assert.True(t, originChecker([]string{"*"})(r))
}
