package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/testutil"
)

func TestServeSSEStreamsSignals(t *testing.T) {
	manager, bus := newManager(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, manager, "AB12CD")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool {
		hub := manager.GetHub("AB12CD")
		return hub != nil && hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, model.ChangeEvent{
		Subject: model.SubjectResults, Op: model.OpInsert, RoomCode: "AB12CD",
	}))

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: room_results") {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"subject":"room_results"`)
	assert.Contains(t, data, `"room_code":"AB12CD"`)
}

func TestServeWSStreamsSignals(t *testing.T) {
	manager, bus := newManager(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, manager, "AB12CD", testutil.NopLogger())
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub := manager.GetHub("AB12CD")
		return hub != nil && hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), model.ChangeEvent{
		Subject: model.SubjectRoom, Op: model.OpUpdate, RoomCode: "AB12CD",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev model.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, model.SubjectRoom, ev.Subject)
	assert.Equal(t, model.OpUpdate, ev.Op)
}

func TestServeWSUnregistersOnDisconnect(t *testing.T) {
	manager, _ := newManager(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, manager, "AB12CD", testutil.NopLogger())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		hub := manager.GetHub("AB12CD")
		return hub != nil && hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return manager.GetHub("AB12CD").ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
}
