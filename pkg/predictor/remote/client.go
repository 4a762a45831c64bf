package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/predictor"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/validation"
)

// ErrMalformedResponse means the server's reply was not a valid
// PredictResponse.
var ErrMalformedResponse = errors.New("malformed predictor response")

// ServerError is a failure reported by the model server itself. It is not
// retried: the request arrived, the model rejected it.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("predictor server: %s", e.Message)
}

const defaultTimeout = 10 * time.Second

// ClientConfig holds the connection settings for a remote predictor.
type ClientConfig struct {
	Address string
	Timeout time.Duration // per-attempt send/recv deadline
	Retries int           // transport-level retries after the first attempt
}

// Client is a predictor.Port backed by a request/reply connection to a model
// server. Request/reply sockets alternate strictly, so calls are serialized;
// a failed exchange drops the socket and the next attempt redials.
type Client struct {
	factory SocketFactory
	cfg     ClientConfig
	log     logging.Logger

	mu   sync.Mutex
	sock DialSocket
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger overrides the client's logger.
func WithClientLogger(l logging.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client; the connection is dialed lazily on first use.
func NewClient(factory SocketFactory, cfg ClientConfig, opts ...ClientOption) *Client {
	cfg.Timeout = validation.DefaultOrDuration(cfg.Timeout, defaultTimeout)
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	c := &Client{
		factory: factory,
		cfg:     cfg,
		log:     logging.DefaultLogger().With(logging.Component("remote-predictor")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ predictor.Port = (*Client)(nil)

// Predict implements predictor.Port. Transport failures are retried up to
// the configured count with a fresh socket each time; an error answered by
// the server is returned as is.
func (c *Client) Predict(ctx context.Context, features [][]float64, edges []graph.Edge, weights []float64) ([][]float64, error) {
	payload, err := json.Marshal(PredictRequest{
		Features: features,
		Edges:    edges,
		Weights:  weights,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			c.log.Warn("retrying predictor call",
				logging.Int("attempt", attempt),
				logging.Error(lastErr),
			)
		}

		reply, err := c.exchange(ctx, payload)
		if err != nil {
			c.dropSocket()
			lastErr = err
			continue
		}

		var resp PredictResponse
		if err := json.Unmarshal(reply, &resp); err != nil {
			c.dropSocket()
			lastErr = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			continue
		}
		if resp.ErrorMessage != "" {
			return nil, &ServerError{Message: resp.ErrorMessage}
		}
		return resp.Probabilities, nil
	}
	return nil, fmt.Errorf("predictor unreachable after %d attempt(s): %w", c.cfg.Retries+1, lastErr)
}

// exchange performs one send/recv round trip on the current socket, dialing
// if needed. Deadlines follow the per-attempt timeout, shortened by the
// context deadline when that comes first.
func (c *Client) exchange(ctx context.Context, payload []byte) ([]byte, error) {
	sock, err := c.socket()
	if err != nil {
		return nil, err
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	if err := sock.SetSendDeadline(timeout); err != nil {
		return nil, fmt.Errorf("set send deadline: %w", err)
	}
	if err := sock.SetRecvDeadline(timeout); err != nil {
		return nil, fmt.Errorf("set recv deadline: %w", err)
	}

	if err := sock.Send(payload); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	reply, err := sock.Recv()
	if err != nil {
		return nil, fmt.Errorf("recv: %w", err)
	}
	return reply, nil
}

func (c *Client) socket() (DialSocket, error) {
	if c.sock != nil {
		return c.sock, nil
	}
	sock, err := c.factory.NewReqSocket()
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := sock.Dial(c.cfg.Address); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Address, err)
	}
	c.sock = sock
	return sock, nil
}

func (c *Client) dropSocket() {
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
}

// Close releases the connection. The client can be reused; the next call
// redials.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropSocket()
	return nil
}
