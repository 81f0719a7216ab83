package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve registers every upgraded socket under userID and keeps it open.
func serve(t *testing.T, hub *Hub, userID uint) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddConnection(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.RemoveConnection(userID, conn)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGradeReceivedReachesTrainee(t *testing.T) {
	hub := NewHub()
	srv := serve(t, hub, 42)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Connections(42) == 1 }, time.Second, 10*time.Millisecond)

	score := 2
	hub.GradeReceived(42, models.Grade{ID: 5, TraineeID: 7, StageID: 3, Competence1: &score})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string       `json:"type"`
		Data models.Grade `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageGradeReceived, msg.Type)
	assert.Equal(t, uint(5), msg.Data.ID)
	assert.Equal(t, 2, *msg.Data.Competence1)
}

func TestSendToOfflineUserIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Send(1, WSMessage{Type: "ping"})
	assert.Zero(t, hub.Connections(1))
}

func TestRemoveConnection(t *testing.T) {
	hub := NewHub()
	srv := serve(t, hub, 9)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Connections(9) == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connections(9) == 0 }, time.Second, 10*time.Millisecond)
}
