package session

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/hcip-drill/pkg/http/ws"
)

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketStreamsSessionUpdates(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	created := f.create(t, `{"subject":"openeuler","mode":"exam"}`)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + created.Session.ID + "?token=" + created.Token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readMessage(t, conn)
	assert.Equal(t, ws.TypeSessionUpdate, initial.Type)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "r1"}))
	pong := readMessage(t, conn)
	assert.Equal(t, ws.TypePong, pong.Type)
	assert.Equal(t, "r1", pong.RequestID)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: "dance"}))
	assert.Equal(t, ws.TypeError, readMessage(t, conn).Type)

	// a transition over HTTP is pushed to the watcher
	require.Eventually(t, func() bool { return f.manager.hub.Watchers(created.Session.ID) == 1 }, time.Second, 10*time.Millisecond)
	rec := f.do(t, "POST", "/v1/sessions/"+created.Session.ID+"/next", created.Token, "")
	require.Equal(t, 200, rec.Code)

	update := readMessage(t, conn)
	require.Equal(t, ws.TypeSessionUpdate, update.Type)
	var payload ws.SessionUpdatePayload
	require.NoError(t, json.Unmarshal(update.Payload, &payload))
	assert.Equal(t, ReasonTransition, payload.Reason)

	var v View
	require.NoError(t, json.Unmarshal(payload.Session, &v))
	assert.Equal(t, 1, v.Index)

	// closing the session tells the watcher
	rec = f.do(t, "DELETE", "/v1/sessions/"+created.Session.ID, created.Token, "")
	require.Equal(t, 204, rec.Code)
	assert.Equal(t, ws.TypeSessionClosed, readMessage(t, conn).Type)
}
