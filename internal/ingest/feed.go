package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/models"
	"go-guildwatch/pkg/util"
)

// feedEvent is the wire shape of one normalized event on the external feed.
// Hosts that are not Discord push events here instead of going through the
// bot adapter.
type feedEvent struct {
	Kind          string   `json:"kind"`
	GuildID       uint64   `json:"guild_id"`
	ActorID       uint64   `json:"actor_id"`
	Timestamp     int64    `json:"timestamp,omitempty"`
	Username      string   `json:"username,omitempty"`
	AccountAgeMs  int64    `json:"account_age_ms,omitempty"`
	HasAvatar     bool     `json:"has_avatar,omitempty"`
	ChannelID     uint64   `json:"channel_id,omitempty"`
	ContentLength int      `json:"content_length,omitempty"`
	Content       string   `json:"content,omitempty"`
	FromChannelID uint64   `json:"from_channel_id,omitempty"`
	ToChannelID   uint64   `json:"to_channel_id,omitempty"`
	AddedRoles    []uint64 `json:"added_roles,omitempty"`
	RemovedRoles  []uint64 `json:"removed_roles,omitempty"`
}

// FeedReader dials a websocket feed of normalized events and pumps them into
// the ring buffer. Reconnects with backoff until the context is cancelled.
type FeedReader struct {
	url        string
	eventQueue *RingBuffer
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewFeedReader(url string, eventQueue *RingBuffer) *FeedReader {
	ctx, cancel := context.WithCancel(context.Background())
	return &FeedReader{
		url:        url,
		eventQueue: eventQueue,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (f *FeedReader) Start() {
	go f.readLoop()
}

func (f *FeedReader) Stop() {
	f.cancel()
}

func (f *FeedReader) readLoop() {
	backoff := time.Second

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		dialer := &websocket.Dialer{
			ReadBufferSize:   65536,
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.DialContext(f.ctx, f.url, nil)
		if err != nil {
			logging.Warn("ingest: feed dial failed: %v, retrying in %v", err, backoff)
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		logging.Info("ingest: connected to event feed %s", f.url)
		backoff = time.Second
		f.consume(conn)
		conn.Close()
	}
}

func (f *FeedReader) consume(conn *websocket.Conn) {
	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logging.Warn("ingest: feed read failed: %v", err)
			return
		}

		var fe feedEvent
		if err := json.Unmarshal(msg, &fe); err != nil {
			logging.Warn("ingest: dropping malformed feed event: %v", err)
			continue
		}

		ev, ok := normalize(fe)
		if !ok {
			continue
		}
		if !f.eventQueue.Enqueue(ev) {
			logging.Warn("ingest: ring buffer full, dropping %s event for guild %d", ev.Kind, ev.GuildID)
		}
	}
}

func normalize(fe feedEvent) (models.Event, bool) {
	ev := models.Event{
		GuildID:       fe.GuildID,
		ActorID:       fe.ActorID,
		Timestamp:     fe.Timestamp,
		Username:      fe.Username,
		AccountAgeMs:  fe.AccountAgeMs,
		HasAvatar:     fe.HasAvatar,
		ChannelID:     fe.ChannelID,
		ContentLength: fe.ContentLength,
		FromChannelID: fe.FromChannelID,
		ToChannelID:   fe.ToChannelID,
		AddedRoles:    fe.AddedRoles,
		RemovedRoles:  fe.RemovedRoles,
	}

	switch fe.Kind {
	case "join":
		ev.Kind = models.KindJoin
	case "leave":
		ev.Kind = models.KindLeave
	case "message":
		ev.Kind = models.KindMessage
		if fe.Content != "" {
			ev.ContentHash = util.ContentHash(fe.Content)
			if ev.ContentLength == 0 {
				ev.ContentLength = len(fe.Content)
			}
		}
	case "voice_transition":
		ev.Kind = models.KindVoiceTransition
	case "role_change":
		ev.Kind = models.KindRoleChange
	default:
		return models.Event{}, false
	}

	if ev.GuildID == 0 {
		return models.Event{}, false
	}
	return ev, true
}
