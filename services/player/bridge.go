package player

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"watchsync/models"
)

var ErrOriginNotAllowed = errors.New("origin not allowed")

// MessageTypeMediaData is the only message type the embedded player sends
// that we act on.
const MessageTypeMediaData = "MEDIA_DATA"

// Message is the envelope posted by the embedded player page.
type Message struct {
	Type string                           `json:"type"`
	Data map[string]models.ProgressRecord `json:"data"`
}

// ProgressSink receives validated progress records from the player.
type ProgressSink interface {
	RecordProgress(models.ProgressRecord) (models.ProgressRecord, error)
}

// Bridge accepts progress messages from the embedded third-party player over
// a websocket. Any page can open a socket, so the origin is checked against
// the configured allowlist before any payload is trusted.
type Bridge struct {
	sink     ProgressSink
	origins  map[string]struct{}
	upgrader websocket.Upgrader
}

// NewBridge creates a bridge forwarding valid records into sink. Origins are
// matched on scheme+host.
func NewBridge(sink ProgressSink, allowedOrigins []string) *Bridge {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		normalized := normalizeOrigin(origin)
		if normalized != "" {
			origins[normalized] = struct{}{}
		}
	}

	b := &Bridge{
		sink:    sink,
		origins: origins,
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return b.originAllowed(r.Header.Get("Origin"))
		},
	}
	return b
}

// Serve upgrades the request and consumes messages until the peer closes.
func (b *Bridge) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response; this covers
		// disallowed origins as well.
		log.Printf("[player] upgrade rejected from %q: %v", r.Header.Get("Origin"), err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log.Printf("[player] connection %s opened from %s", connID, r.Header.Get("Origin"))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[player] connection %s closed unexpectedly: %v", connID, err)
			}
			return
		}
		b.handlePayload(connID, payload)
	}
}

// HandleMessage applies a single already-received message, validating the
// claimed origin first. Used by the HTTP fallback endpoint for player pages
// that relay postMessage events without a socket.
func (b *Bridge) HandleMessage(origin string, payload []byte) error {
	if !b.originAllowed(origin) {
		return ErrOriginNotAllowed
	}
	b.handlePayload("relay", payload)
	return nil
}

func (b *Bridge) handlePayload(connID string, payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("[player] connection %s sent malformed payload: %v", connID, err)
		return
	}
	if msg.Type != MessageTypeMediaData {
		return
	}

	for _, rec := range msg.Data {
		if !rec.Valid() {
			continue
		}
		if _, err := b.sink.RecordProgress(rec); err != nil {
			log.Printf("[player] connection %s record %s rejected: %v", connID, rec.Key(), err)
		}
	}
}

func (b *Bridge) originAllowed(origin string) bool {
	return b.isAllowed(normalizeOrigin(origin))
}

func (b *Bridge) isAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := b.origins[origin]
	return ok
}

func normalizeOrigin(origin string) string {
	origin = strings.TrimSpace(strings.TrimSuffix(origin, "/"))
	if origin == "" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
