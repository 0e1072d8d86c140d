// Package websocket streams operator commands to the server over a persistent
// WebSocket and waits for per-command acknowledgements.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
	"github.com/M-Chimiste/DCSOlympus/pkg/streaming"
)

const defaultAckTimeout = 10 * time.Second

// Config holds WebSocket command stream configuration.
type Config struct {
	URL        string
	Token      string
	AckTimeout time.Duration
}

// HelloPayload identifies the console to the server after every (re)connect.
type HelloPayload struct {
	CommandMode core.CommandMode `json:"commandMode"`
	Coalition   core.Coalition   `json:"coalition"`
}

// Sender sends command envelopes over WebSocket.
type Sender struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket command sender.
func New(cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	return &Sender{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Connect dials the server and introduces the console. The hello is cached
// and replayed whenever the connection is re-established.
func (s *Sender) Connect(ctx context.Context, hello HelloPayload) error {
	if err := s.conn.dial(ctx, s.cfg.URL, s.cfg.Token); err != nil {
		return err
	}

	data, err := marshalEnvelope(streaming.TypeHello, hello)
	if err != nil {
		return err
	}

	s.conn.setHello(data)
	return s.conn.request(ctx, data, streaming.TypeHello, s.cfg.AckTimeout)
}

// Send pushes an envelope and waits for the server's ack.
func (s *Sender) Send(ctx context.Context, env streaming.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	return s.conn.request(ctx, data, env.Type, s.cfg.AckTimeout)
}

// Close disconnects from the WebSocket server.
func (s *Sender) Close() error {
	return s.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
