package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRealtime accepts one channel join, pushes the given changes and
// reports the events it received from the client.
func fakeRealtime(t *testing.T, status string, changes []string) (*httptest.Server, <-chan phxMessage) {
	t.Helper()
	got := make(chan phxMessage, 16)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		assert.Equal(t, "anon-key", r.URL.Query().Get("apikey"))
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()

		var join phxMessage
		if err := wsjson.Read(ctx, c, &join); err != nil {
			return
		}
		got <- join
		reply, _ := json.Marshal(map[string]any{"status": status, "response": map[string]any{}})
		_ = wsjson.Write(ctx, c, phxMessage{Topic: join.Topic, Event: "phx_reply", Payload: reply, Ref: join.Ref})
		if status != "ok" {
			return
		}
		for _, ch := range changes {
			_ = wsjson.Write(ctx, c, phxMessage{Topic: join.Topic, Event: "postgres_changes", Payload: json.RawMessage(ch)})
		}
		for {
			var m phxMessage
			if err := wsjson.Read(ctx, c, &m); err != nil {
				return
			}
			got <- m
		}
	}))
	t.Cleanup(ts.Close)
	return ts, got
}

func TestRealtime_SubscribeReceivesChangesInOrder(t *testing.T) {
	ts, got := fakeRealtime(t, "ok", []string{
		`{"data":{"type":"UPDATE","table":"users","record":{"id":"u1","full_name":"A"}}}`,
		`{"data":{"type":"BOGUS"}}`,
		`{"data":{"type":"DELETE","table":"users","old_record":{"id":"u1"}}}`,
	})
	rt := NewRealtime(ts.URL, "anon-key", zap.NewNop().Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := rt.Subscribe(gateway.WithAccessToken(ctx, "user-token"), "users", "id=eq.u1")
	require.NoError(t, err)

	join := <-got
	assert.Equal(t, "phx_join", join.Event)
	var jp joinPayload
	require.NoError(t, json.Unmarshal(join.Payload, &jp))
	assert.Equal(t, "user-token", jp.AccessToken)
	require.Len(t, jp.Config.PostgresChanges, 1)
	assert.Equal(t, "id=eq.u1", jp.Config.PostgresChanges[0].Filter)
	assert.Equal(t, "users", jp.Config.PostgresChanges[0].Table)

	ev := <-sub.Events()
	assert.Equal(t, gateway.EventUpdate, ev.Type)
	assert.JSONEq(t, `{"id":"u1","full_name":"A"}`, string(ev.New))

	ev = <-sub.Events()
	assert.Equal(t, gateway.EventDelete, ev.Type)
	assert.JSONEq(t, `{"id":"u1"}`, string(ev.Old))

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	select {
	case m := <-got:
		assert.Equal(t, "phx_leave", m.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("no phx_leave received")
	}
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestRealtime_JoinRejected(t *testing.T) {
	ts, _ := fakeRealtime(t, "error", nil)
	rt := NewRealtime(ts.URL, "anon-key", zap.NewNop().Sugar())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := rt.Subscribe(ctx, "users", "id=eq.u1")
	assert.Error(t, err)
}

func TestNewRealtime_Endpoint(t *testing.T) {
	rt := NewRealtime("https://proj.supabase.co/", "k", zap.NewNop().Sugar())
	assert.Equal(t, "wss://proj.supabase.co/realtime/v1/websocket?apikey=k&vsn=1.0.0", rt.endpoint)
}
