package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultHeartbeat = 25 * time.Second
	joinTimeout      = 10 * time.Second
	readLimit        = 1 << 20
)

// Realtime speaks the Phoenix channel protocol of Supabase Realtime.
// Every subscription owns one websocket connection.
type Realtime struct {
	endpoint  string
	apiKey    string
	heartbeat time.Duration
	logger    *zap.SugaredLogger
}

var _ gateway.Realtime = (*Realtime)(nil)

// NewRealtime derives the websocket endpoint from the project URL.
func NewRealtime(baseURL, apiKey string, logger *zap.SugaredLogger) *Realtime {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	q := url.Values{"apikey": {apiKey}, "vsn": {"1.0.0"}}
	return &Realtime{
		endpoint:  u + "/realtime/v1/websocket?" + q.Encode(),
		apiKey:    apiKey,
		heartbeat: defaultHeartbeat,
		logger:    logger,
	}
}

// phxMessage is one Phoenix frame.
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type postgresChange struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPayload struct {
	Config struct {
		Broadcast       map[string]bool   `json:"broadcast"`
		Presence        map[string]string `json:"presence"`
		PostgresChanges []postgresChange  `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Type      string          `json:"type" validate:"required,oneof=INSERT UPDATE DELETE"`
		Table     string          `json:"table"`
		Record    json.RawMessage `json:"record"`
		OldRecord json.RawMessage `json:"old_record"`
	} `json:"data"`
}

// Subscribe joins a postgres_changes channel on table with the given filter.
func (r *Realtime) Subscribe(ctx context.Context, table, filter string) (gateway.Subscription, error) {
	conn, _, err := websocket.Dial(ctx, r.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}
	conn.SetReadLimit(readLimit)

	token, ok := gateway.AccessToken(ctx)
	if !ok {
		token = r.apiKey
	}
	s := &subscription{
		conn:   conn,
		topic:  "realtime:" + table + "-" + uuid.NewString(),
		table:  table,
		events: make(chan gateway.ChangeEvent, 16),
		logger: r.logger,
	}
	var jp joinPayload
	jp.Config.Broadcast = map[string]bool{"self": false}
	jp.Config.Presence = map[string]string{"key": ""}
	jp.Config.PostgresChanges = []postgresChange{{Event: "*", Schema: "public", Table: table, Filter: filter}}
	jp.AccessToken = token

	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	ref, err := s.send(joinCtx, "phx_join", jp, true)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		return nil, fmt.Errorf("realtime join: %w", err)
	}
	if err := s.awaitReply(joinCtx, ref); err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "join rejected")
		return nil, err
	}

	runCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	s.wg.Add(2)
	go s.readLoop(runCtx)
	go s.heartbeatLoop(runCtx, r.heartbeat)
	return s, nil
}

type subscription struct {
	conn    *websocket.Conn
	topic   string
	table   string
	joinRef string
	ref     atomic.Int64
	events  chan gateway.ChangeEvent
	logger  *zap.SugaredLogger
	stop    context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
	closing atomic.Bool
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.events }

// Unsubscribe leaves the channel and closes the connection. Safe to call twice.
func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.closing.Store(true)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, lerr := s.send(ctx, "phx_leave", struct{}{}, false); lerr != nil {
			s.logger.Debugw("realtime leave failed", "topic", s.topic, "error", lerr)
		}
		s.stop()
		if cerr := s.conn.CloseNow(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		s.wg.Wait()
	})
	return err
}

func (s *subscription) send(ctx context.Context, event string, payload any, join bool) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	ref := strconv.FormatInt(s.ref.Add(1), 10)
	if join {
		s.joinRef = ref
	}
	msg := phxMessage{Topic: s.topic, Event: event, Payload: raw, Ref: &ref}
	if s.joinRef != "" {
		jr := s.joinRef
		msg.JoinRef = &jr
	}
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *subscription) awaitReply(ctx context.Context, ref string) error {
	for {
		var msg phxMessage
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			return fmt.Errorf("realtime join: %w", err)
		}
		if msg.Event != "phx_reply" || msg.Ref == nil || *msg.Ref != ref {
			continue
		}
		var rp replyPayload
		if err := json.Unmarshal(msg.Payload, &rp); err != nil {
			return fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
		}
		if rp.Status != "ok" {
			return fmt.Errorf("realtime join rejected: %s", strings.TrimSpace(string(rp.Response)))
		}
		return nil
	}
}

func (s *subscription) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)
	for {
		var msg phxMessage
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			if ctx.Err() == nil && !s.closing.Load() {
				s.logger.Warnw("realtime connection closed", "topic", s.topic, "error", err)
			}
			return
		}
		switch msg.Event {
		case "postgres_changes":
			ev, err := decodeChange(msg.Payload)
			if err != nil {
				s.logger.Warnw("realtime bad change payload", "topic", s.topic, "error", err)
				continue
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		case "phx_error", "phx_close":
			s.logger.Warnw("realtime channel ended", "topic", s.topic, "event", msg.Event)
			return
		case "system":
			s.logger.Debugw("realtime system message", "topic", s.topic, "payload", string(msg.Payload))
		}
	}
}

func (s *subscription) heartbeatLoop(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ref := strconv.FormatInt(s.ref.Add(1), 10)
			hb := phxMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: &ref}
			if err := wsjson.Write(ctx, s.conn, hb); err != nil {
				if ctx.Err() == nil && !s.closing.Load() {
					s.logger.Warnw("realtime heartbeat failed", "error", err)
				}
				return
			}
		}
	}
}

func decodeChange(raw json.RawMessage) (gateway.ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return gateway.ChangeEvent{}, fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
	}
	if err := gateway.Validate(&p); err != nil {
		return gateway.ChangeEvent{}, err
	}
	return gateway.ChangeEvent{
		Type:  gateway.EventType(p.Data.Type),
		Table: p.Data.Table,
		New:   p.Data.Record,
		Old:   p.Data.OldRecord,
	}, nil
}
