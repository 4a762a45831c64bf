package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/predictor"
)

// recvPollInterval bounds how long the serve loop blocks in Recv, so Stop is
// noticed promptly even when no requests arrive.
const recvPollInterval = 250 * time.Millisecond

// Server exposes any predictor.Port over a reply socket, one request at a
// time. Bad requests get an error reply; the loop never dies on malformed
// input.
type Server struct {
	port    predictor.Port
	factory SocketFactory
	log     logging.Logger

	mu      sync.Mutex
	running bool
	sock    ListenSocket
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger overrides the server's logger.
func WithServerLogger(l logging.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer wraps a predictor port for remote serving.
func NewServer(port predictor.Port, factory SocketFactory, opts ...ServerOption) *Server {
	s := &Server{
		port:    port,
		factory: factory,
		log:     logging.DefaultLogger().With(logging.Component("predictor-server")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the reply socket and launches the serve loop.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("predictor server already running")
	}

	sock, err := s.factory.NewRepSocket()
	if err != nil {
		return fmt.Errorf("create socket: %w", err)
	}
	if err := sock.SetRecvDeadline(recvPollInterval); err != nil {
		sock.Close()
		return fmt.Errorf("set recv deadline: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.sock = sock
	s.stopCh = make(chan struct{})
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.serve(ctx)

	s.log.Info("predictor server started", logging.String("addr", addr))
	return nil
}

// Stop shuts the serve loop down and closes the socket. Safe to call twice.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	close(s.stopCh)
	s.cancel()
	s.sock.Close()
	s.wg.Wait()
	s.running = false

	s.log.Info("predictor server stopped")
	return nil
}

func (s *Server) serve(ctx context.Context) {
	defer s.wg.Done()

	for {
		data, err := s.sock.Recv()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				// recv deadline tick, keep polling
				continue
			}
		}

		resp := s.handle(ctx, data)
		reply, err := json.Marshal(resp)
		if err != nil {
			// NaN in the probability matrix is the one way this fails
			reply = []byte(`{"error_message":"encode response failed"}`)
		}
		if err := s.sock.Send(reply); err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.log.Warn("reply send failed", logging.Error(err))
			}
		}
	}
}

// handle runs one request through the port. Every failure mode comes back as
// an error reply so the requester is never left waiting.
func (s *Server) handle(ctx context.Context, data []byte) PredictResponse {
	var req PredictRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return PredictResponse{ErrorMessage: fmt.Sprintf("decode request: %v", err)}
	}

	snap := &graph.Snapshot{Features: req.Features, Edges: req.Edges, Weights: req.Weights}
	if snap.NodeCount() == 0 {
		return PredictResponse{ErrorMessage: "empty feature matrix"}
	}
	if err := snap.Validate(); err != nil {
		return PredictResponse{ErrorMessage: err.Error()}
	}
	if w := len(req.Features[0]); w != graph.FeatureCount {
		return PredictResponse{ErrorMessage: fmt.Sprintf(
			"rows have %d features, predictor contract requires %d", w, graph.FeatureCount)}
	}

	probs, err := s.port.Predict(ctx, req.Features, req.Edges, req.Weights)
	if err != nil {
		return PredictResponse{ErrorMessage: err.Error()}
	}
	return PredictResponse{Probabilities: probs}
}
