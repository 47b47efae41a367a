// Package stream subscribes to on-chain account changes and feeds them to
// the caches and the engine.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

// AccountUpdate is one programNotification.
type AccountUpdate struct {
	Pubkey solana.PublicKey
	Data   []byte
	Slot   uint64
}

// SubscriberConfig configures a programSubscribe stream.
type SubscriberConfig struct {
	Endpoint   string
	Name       string
	Program    solana.PublicKey
	Filters    []rpc.Filter
	Commitment string

	// ReconnectDelay doubles after every failed session up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration

	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

// DefaultSubscriberConfig returns the connection timings used for every stream.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		Commitment:        "confirmed",
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// ProgramSubscriber keeps one programSubscribe subscription alive,
// reconnecting with exponential backoff.
type ProgramSubscriber struct {
	cfg    SubscriberConfig
	logger *logrus.Entry
}

func NewProgramSubscriber(cfg SubscriberConfig) *ProgramSubscriber {
	def := DefaultSubscriberConfig()
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = max(def.MaxReconnectDelay, cfg.ReconnectDelay)
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &ProgramSubscriber{
		cfg: cfg,
		logger: cfg.Logger.WithFields(logrus.Fields{
			"stream":  cfg.Name,
			"program": cfg.Program.String(),
		}),
	}
}

// Run delivers updates to out, in the order the node sends them, until ctx
// is done.
func (s *ProgramSubscriber) Run(ctx context.Context, out chan<- AccountUpdate) error {
	delay := s.cfg.ReconnectDelay
	for {
		delivered, err := s.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			delay = s.cfg.ReconnectDelay
		}
		s.cfg.Metrics.RecordReconnect(s.cfg.Name)
		s.logger.WithError(err).WithField("retry_in", delay).Warn("subscription lost")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(delay*2, s.cfg.MaxReconnectDelay)
	}
}

// session runs one connection. It reports whether any update was delivered.
func (s *ProgramSubscriber) session(ctx context.Context, out chan<- AccountUpdate) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.WriteTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.Endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	var writeMu sync.Mutex
	writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	err = conn.WriteJSON(wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "programSubscribe",
		Params: []any{
			s.cfg.Program.String(),
			map[string]any{
				"encoding":   "base64",
				"commitment": s.cfg.Commitment,
				"filters":    s.cfg.Filters,
			},
		},
	})
	writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("write subscribe: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})
	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	delivered := false
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return delivered, fmt.Errorf("read: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.WithError(err).Debug("skipping malformed message")
			continue
		}
		switch {
		case msg.Error != nil:
			return delivered, fmt.Errorf("subscribe: %w", msg.Error)
		case msg.ID == 1 && len(msg.Result) > 0:
			s.logger.WithField("subscription", string(msg.Result)).Info("subscribed")
		case msg.Method == "programNotification" && msg.Params != nil:
			upd, err := msg.Params.update()
			if err != nil {
				s.logger.WithError(err).Debug("skipping notification")
				continue
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return delivered, ctx.Err()
			}
			delivered = true
			s.cfg.Metrics.RecordStreamMessage(s.cfg.Name)
		}
	}
}

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type wsMessage struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *rpc.RPCError   `json:"error"`
	Params *wsParams       `json:"params"`
}

type wsParams struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value rpc.KeyedAccount `json:"value"`
	} `json:"result"`
}

func (p *wsParams) update() (AccountUpdate, error) {
	pk, err := solana.PublicKeyFromBase58(p.Result.Value.Pubkey)
	if err != nil {
		return AccountUpdate{}, fmt.Errorf("notification pubkey: %w", err)
	}
	return AccountUpdate{
		Pubkey: pk,
		Data:   p.Result.Value.Account.Data,
		Slot:   p.Result.Context.Slot,
	}, nil
}
