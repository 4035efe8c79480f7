// Package realtime рассылает подписчикам изменения строк таблиц через WebSocket
// и предоставляет клиент, поддерживающий локальную копию данных по этим событиям.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/middleware"
	"github.com/mmeshcher/foodshare/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

type subscriber struct {
	conn   *websocket.Conn
	userID string
	sub    Subscription
	send   chan model.ChangeEvent
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// Hub хранит активные подписки и рассылает им события.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	now         func() time.Time
}

// NewHub создаёт новый Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		now:    time.Now,
	}
}

// Publish формирует событие изменения строки и рассылает его подписчикам. Подписчик,
// не успевающий читать события, отключается.
func (h *Hub) Publish(table string, eventType model.EventType, newRow, oldRow any) {
	ev := model.ChangeEvent{
		EventType:       eventType,
		Table:           table,
		CommitTimestamp: h.now().UTC(),
	}

	var err error
	if newRow != nil {
		if ev.New, err = json.Marshal(newRow); err != nil {
			h.logger.Error("marshal realtime row", zap.Error(err), zap.String("table", table))
			return
		}
	}
	if oldRow != nil {
		if ev.Old, err = json.Marshal(oldRow); err != nil {
			h.logger.Error("marshal realtime row", zap.Error(err), zap.String("table", table))
			return
		}
	}

	h.Broadcast(ev)
}

// Broadcast рассылает готовое событие подписчикам.
func (h *Hub) Broadcast(ev model.ChangeEvent) {
	h.mu.RLock()
	var slow []*subscriber
	for s := range h.subscribers {
		if !s.sub.Matches(ev) {
			continue
		}
		select {
		case s.send <- ev:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow realtime subscriber", zap.String("userID", s.userID), zap.String("subscription", s.sub.String()))
		h.unregister(s)
	}
}

// SubscriberCount возвращает число активных подписок.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
		s.close()
	}
	h.mu.Unlock()
}

// Close отключает всех подписчиков.
func (h *Hub) Close() {
	h.mu.Lock()
	for s := range h.subscribers {
		delete(h.subscribers, s)
		s.close()
	}
	h.mu.Unlock()
}

// ServeHTTP принимает WebSocket-подписку вида ?table=food_listings&filter=donor_id=eq.<id>.
// Подписки на уведомления и брони ограничены записями самого пользователя,
// администратор видит все брони.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	table := r.URL.Query().Get("table")
	if table == "" {
		table = model.TableListings
	}
	sub, err := ParseSubscription(table, r.URL.Query().Get("filter"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	role, _ := middleware.GetRoleFromContext(r.Context())
	switch sub.Table {
	case model.TableNotifications:
		sub.Column, sub.Value = "user_id", userID
	case model.TableClaims:
		if role != model.RoleAdmin {
			sub.Column, sub.Value = "claimed_by", userID
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	s := &subscriber{
		conn:   conn,
		userID: userID,
		sub:    sub,
		send:   make(chan model.ChangeEvent, sendBuffer),
	}
	h.register(s)
	h.logger.Info("realtime subscriber connected", zap.String("userID", userID), zap.String("subscription", sub.String()))

	go h.writePump(s)
	h.readPump(s)
}

func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
		h.logger.Info("realtime subscriber disconnected", zap.String("userID", s.userID))
	}()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				h.logger.Warn("realtime write error", zap.Error(err), zap.String("userID", s.userID))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
