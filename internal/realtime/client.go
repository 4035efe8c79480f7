package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/model"
)

// Client подписывается на поток изменений и переподключается после обрыва связи.
type Client struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewClient создаёт клиента для сервера addr с подпиской на таблицу table.
func NewClient(addr, table, filter, token string, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(addr, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
	default:
		base = "ws://" + base
	}

	u, err := url.Parse(base + "/api/realtime")
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	q := u.Query()
	q.Set("table", table)
	if filter != "" {
		q.Set("filter", filter)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return &Client{
		url:        u.String(),
		header:     header,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}, nil
}

// Run читает события и передаёт их в handle до отмены контекста. После обрыва
// соединения клиент переподключается с экспоненциальной задержкой.
func (c *Client) Run(ctx context.Context, handle func(model.ChangeEvent)) error {
	backoff := c.minBackoff

	for {
		received, err := c.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.ClosePolicyViolation {
			return err
		}

		if received {
			backoff = c.minBackoff
		}
		c.logger.Warn("realtime connection lost", zap.Error(err), zap.Duration("retry_in", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func (c *Client) session(ctx context.Context, handle func(model.ChangeEvent)) (bool, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, &websocket.CloseError{Code: websocket.ClosePolicyViolation, Text: "unauthorized"}
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	received := false
	for {
		var ev model.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return received, err
		}
		received = true
		handle(ev)
	}
}
