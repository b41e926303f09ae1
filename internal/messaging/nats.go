// Package messaging publishes reservation lifecycle events on NATS Streaming
// and hands them to queue consumers.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

var ErrNotConnected = errors.New("nats streaming connection is not established")

// AckWait is how long the server waits for a consumer ack before redelivering.
const AckWait = 30 * time.Second

type Config struct {
	URL       string
	ClusterID string
	ClientID  string
}

type NATSClient struct {
	conn stan.Conn
	lost atomic.Bool
}

// NewNATSClient connects to NATS Streaming. The client id gets a random
// suffix so replicas of the same process can share a cluster.
func NewNATSClient(cfg Config) (*NATSClient, error) {
	clientID := cfg.ClientID + "-" + uuid.NewString()[:8]
	nc := &NATSClient{}

	conn, err := stan.Connect(cfg.ClusterID, clientID,
		stan.NatsURL(cfg.URL),
		stan.Pings(10, 5),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			nc.lost.Store(true)
			slog.Error("NATS Streaming connection lost", "client", clientID, "error", reason)
		}))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS Streaming at %s: %w", cfg.URL, err)
	}
	nc.conn = conn

	slog.Info("Connected to NATS Streaming", "url", cfg.URL, "cluster", cfg.ClusterID, "client", clientID)
	return nc, nil
}

// Disconnected returns a client whose publishes fail with ErrNotConnected.
// Services log publish failures and carry on, so the API keeps serving.
func Disconnected() *NATSClient {
	return &NATSClient{}
}

// Connected is false for a Disconnected client and after the server dropped us.
func (nc *NATSClient) Connected() bool {
	return nc != nil && nc.conn != nil && !nc.lost.Load()
}

// Publish JSON encodes data and waits for the server ack.
func (nc *NATSClient) Publish(subject string, data any) error {
	if !nc.Connected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	slog.Debug("Published event", "subject", subject, "bytes", len(payload))
	return nil
}

// SubscribeQueue joins queue on subject in manual ack mode, one message in
// flight at a time. Handlers must call msg.Ack once the work is done;
// unacked messages come back after AckWait.
func (nc *NATSClient) SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error) {
	if !nc.Connected() {
		return nil, ErrNotConnected
	}

	sub, err := nc.conn.QueueSubscribe(subject, queue, handler,
		stan.DurableName(subject+"-"+queue+"-durable"),
		stan.SetManualAckMode(),
		stan.AckWait(AckWait),
		stan.MaxInflight(1))
	if err != nil {
		return nil, fmt.Errorf("queue subscribe %s/%s: %w", subject, queue, err)
	}
	slog.Info("Subscribed", "subject", subject, "queue", queue)
	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc == nil || nc.conn == nil {
		return nil
	}
	return nc.conn.Close()
}
