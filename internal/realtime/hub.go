package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains survey_id -> set of connections and broadcasts events
// to everyone watching a survey's live response feed. Uses Redis
// pub/sub for horizontal scaling; published events come back through
// each instance's subscription for local delivery.
type Hub struct {
	// surveyID -> map[clientID]*Client
	surveys  map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per survey
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSurveyEvent(surveyID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to survey channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSurvey(surveyID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		surveys:  make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a survey room. Starts Redis subscription for this survey if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.surveys[c.SurveyID] == nil {
		h.surveys[c.SurveyID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSurvey(c.SurveyID, func(event string, payload []byte) {
				h.BroadcastToSurvey(c.SurveyID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.SurveyID] = cancel
			}
		}
	}
	h.surveys[c.SurveyID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined survey feed", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID.String()))
}

// Unregister removes a client from a survey room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.surveys[c.SurveyID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.surveys, c.SurveyID)
			if cancel, ok := h.subs[c.SurveyID]; ok {
				cancel()
				delete(h.subs, c.SurveyID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left survey feed", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID.String()))
}

// BroadcastToSurvey sends a message to all clients watching a survey (local only).
func (h *Hub) BroadcastToSurvey(surveyID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.surveys[surveyID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishToSurvey publishes an event to Redis only. Local clients get
// it through this instance's own subscription, so each watcher sees
// exactly one copy; broadcasting here as well would deliver it twice.
// Without a Redis publisher the event is delivered locally instead.
func (h *Hub) PublishToSurvey(surveyID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.BroadcastToSurvey(surveyID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = h.redis.PublishSurveyEvent(surveyID, event, data)
}

// WatcherCount returns the number of connected clients watching a survey.
func (h *Hub) WatcherCount(surveyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.surveys[surveyID])
}
