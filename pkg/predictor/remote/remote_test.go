package remote

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/predictor"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/predictor/cascade"
)

// pipeSocket is an in-memory Socket over a pair of channels, enough to drive
// the client and server through the same code paths the real transports use.
type pipeSocket struct {
	sendCh chan<- []byte
	recvCh <-chan []byte

	mu          sync.Mutex
	recvTimeout time.Duration
	sendTimeout time.Duration

	closed    chan struct{}
	closeOnce sync.Once
}

func (s *pipeSocket) Send(data []byte) error {
	s.mu.Lock()
	timeout := s.sendTimeout
	s.mu.Unlock()

	var timer <-chan time.Time
	if timeout > 0 {
		timer = time.After(timeout)
	}
	select {
	case <-s.closed:
		return errors.New("socket closed")
	case s.sendCh <- data:
		return nil
	case <-timer:
		return errors.New("send timeout")
	}
}

func (s *pipeSocket) Recv() ([]byte, error) {
	s.mu.Lock()
	timeout := s.recvTimeout
	s.mu.Unlock()

	var timer <-chan time.Time
	if timeout > 0 {
		timer = time.After(timeout)
	}
	select {
	case <-s.closed:
		return nil, errors.New("socket closed")
	case data := <-s.recvCh:
		return data, nil
	case <-timer:
		return nil, errors.New("recv timeout")
	}
}

func (s *pipeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *pipeSocket) SetRecvDeadline(d time.Duration) error {
	s.mu.Lock()
	s.recvTimeout = d
	s.mu.Unlock()
	return nil
}

func (s *pipeSocket) SetSendDeadline(d time.Duration) error {
	s.mu.Lock()
	s.sendTimeout = d
	s.mu.Unlock()
	return nil
}

func (s *pipeSocket) Dial(addr string) error   { return nil }
func (s *pipeSocket) Listen(addr string) error { return nil }

// pipeFactory wires every request socket to every reply socket over one
// shared channel pair.
type pipeFactory struct {
	toServer chan []byte
	toClient chan []byte
}

func newPipeFactory() *pipeFactory {
	return &pipeFactory{
		toServer: make(chan []byte, 4),
		toClient: make(chan []byte, 4),
	}
}

func (f *pipeFactory) NewReqSocket() (DialSocket, error) {
	return &pipeSocket{sendCh: f.toServer, recvCh: f.toClient, closed: make(chan struct{})}, nil
}

func (f *pipeFactory) NewRepSocket() (ListenSocket, error) {
	return &pipeSocket{sendCh: f.toClient, recvCh: f.toServer, closed: make(chan struct{})}, nil
}

// flakyFactory fails the first n sends on request sockets so retry handling
// can be exercised.
type flakyFactory struct {
	*pipeFactory
	fails atomic.Int32
}

type flakySocket struct {
	DialSocket
	fails *atomic.Int32
}

func (s *flakySocket) Send(data []byte) error {
	if s.fails.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	return s.DialSocket.Send(data)
}

func (f *flakyFactory) NewReqSocket() (DialSocket, error) {
	sock, err := f.pipeFactory.NewReqSocket()
	if err != nil {
		return nil, err
	}
	return &flakySocket{DialSocket: sock, fails: &f.fails}, nil
}

func testSnapshot() *graph.Snapshot {
	features := make([][]float64, 3)
	for i, typeIdx := range []int{3, 5, 10} {
		row := make([]float64, graph.FeatureCount)
		row[typeIdx] = 1.0
		row[graph.StatusIndex] = 0.9
		row[graph.LevelIndex] = 0.8
		row[graph.FlowIndex] = 0.7
		features[i] = row
	}
	features[0][graph.StatusIndex] = 0.0
	return &graph.Snapshot{
		Features: features,
		Edges:    []graph.Edge{{From: 0, To: 1}, {From: 1, To: 2}},
		Weights:  []float64{0.9, 0.8},
	}
}

func startTestServer(t *testing.T, port predictor.Port, factory SocketFactory) *Server {
	t.Helper()
	srv := NewServer(port, factory, WithServerLogger(logging.NewNopLogger()))
	if err := srv.Start("inproc://predictor"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func newTestClient(factory SocketFactory, retries int) *Client {
	return NewClient(factory, ClientConfig{
		Address: "inproc://predictor",
		Timeout: time.Second,
		Retries: retries,
	}, WithClientLogger(logging.NewNopLogger()))
}

func TestClientServerRoundTrip(t *testing.T) {
	factory := newPipeFactory()
	startTestServer(t, cascade.New(), factory)

	client := newTestClient(factory, 0)
	defer client.Close()

	snap := testSnapshot()
	got, err := client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	want, err := cascade.New().Predict(context.Background(), snap.Features, snap.Edges, snap.Weights)
	if err != nil {
		t.Fatalf("reference predict: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("remote prediction differs from local model")
	}
}

func TestClientReportsServerError(t *testing.T) {
	factory := newPipeFactory()
	var calls atomic.Int32
	startTestServer(t, predictor.Func(func(context.Context, [][]float64, []graph.Edge, []float64) ([][]float64, error) {
		calls.Add(1)
		return nil, errors.New("model exploded")
	}), factory)

	client := newTestClient(factory, 3)
	defer client.Close()

	snap := testSnapshot()
	_, err := client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights)

	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want ServerError", err)
	}
	if !strings.Contains(serr.Message, "model exploded") {
		t.Errorf("message = %q", serr.Message)
	}
	// a server-side failure is an answer, not a transport fault
	if calls.Load() != 1 {
		t.Errorf("predictor calls = %d, want 1", calls.Load())
	}
}

func TestClientRetriesTransportFailure(t *testing.T) {
	factory := &flakyFactory{pipeFactory: newPipeFactory()}
	factory.fails.Store(1)
	startTestServer(t, cascade.New(), factory.pipeFactory)

	client := newTestClient(factory, 2)
	defer client.Close()

	snap := testSnapshot()
	got, err := client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights)
	if err != nil {
		t.Fatalf("Predict after retry: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("rows = %d, want 3", len(got))
	}
}

func TestClientFailsAfterRetriesExhausted(t *testing.T) {
	// no server: requests queue up and no reply ever arrives
	factory := newPipeFactory()
	client := NewClient(factory, ClientConfig{
		Address: "inproc://predictor",
		Timeout: 50 * time.Millisecond,
		Retries: 1,
	}, WithClientLogger(logging.NewNopLogger()))
	defer client.Close()

	snap := testSnapshot()
	_, err := client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights)
	if err == nil {
		t.Fatal("expected error with no server")
	}
	if !strings.Contains(err.Error(), "after 2 attempt(s)") {
		t.Errorf("error = %v, want exhausted attempts", err)
	}
}

func TestClientContextCancelled(t *testing.T) {
	factory := newPipeFactory()
	client := newTestClient(factory, 3)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := testSnapshot()
	_, err := client.Predict(ctx, snap.Features, snap.Edges, snap.Weights)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClientRejectsMalformedReply(t *testing.T) {
	factory := newPipeFactory()

	// hand-rolled reply side that answers with garbage
	rep, err := factory.NewRepSocket()
	if err != nil {
		t.Fatalf("NewRepSocket: %v", err)
	}
	defer rep.Close()
	rep.SetRecvDeadline(time.Second)
	go func() {
		if _, err := rep.Recv(); err != nil {
			return
		}
		rep.Send([]byte("{{not json"))
	}()

	client := newTestClient(factory, 0)
	defer client.Close()

	snap := testSnapshot()
	_, err = client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestServerRejectsMalformedRequest(t *testing.T) {
	factory := newPipeFactory()
	startTestServer(t, cascade.New(), factory)

	req, err := factory.NewReqSocket()
	if err != nil {
		t.Fatalf("NewReqSocket: %v", err)
	}
	defer req.Close()
	req.SetRecvDeadline(time.Second)

	if err := req.Send([]byte("not json")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	raw, err := req.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	var resp PredictResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !strings.Contains(resp.ErrorMessage, "decode request") {
		t.Errorf("ErrorMessage = %q", resp.ErrorMessage)
	}

	// the loop survives and serves the next, well-formed request
	snap := testSnapshot()
	client := newTestClient(factory, 0)
	defer client.Close()
	if _, err := client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights); err != nil {
		t.Fatalf("Predict after bad request: %v", err)
	}
}

func TestServerValidatesRequest(t *testing.T) {
	tests := []struct {
		name     string
		request  PredictRequest
		contains string
	}{
		{
			name:     "empty features",
			request:  PredictRequest{},
			contains: "empty feature matrix",
		},
		{
			name: "wrong width",
			request: PredictRequest{
				Features: [][]float64{{1, 0, 0}},
			},
			contains: "predictor contract requires",
		},
		{
			name: "edge out of range",
			request: PredictRequest{
				Features: [][]float64{make([]float64, graph.FeatureCount)},
				Edges:    []graph.Edge{{From: 0, To: 9}},
			},
			contains: "edge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(cascade.New(), newPipeFactory(), WithServerLogger(logging.NewNopLogger()))
			data, err := json.Marshal(tt.request)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			resp := srv.handle(context.Background(), data)
			if resp.Probabilities != nil {
				t.Error("expected no probabilities")
			}
			if !strings.Contains(resp.ErrorMessage, tt.contains) {
				t.Errorf("ErrorMessage = %q, want substring %q", resp.ErrorMessage, tt.contains)
			}
		})
	}
}

func TestServerStartStop(t *testing.T) {
	factory := newPipeFactory()
	srv := NewServer(cascade.New(), factory, WithServerLogger(logging.NewNopLogger()))

	if err := srv.Start("inproc://predictor"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Start("inproc://predictor"); err == nil {
		t.Error("second Start should fail while running")
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	// a stopped server can be started again
	if err := srv.Start("inproc://predictor"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer srv.Stop()

	client := newTestClient(factory, 0)
	defer client.Close()
	snap := testSnapshot()
	if _, err := client.Predict(context.Background(), snap.Features, snap.Edges, snap.Weights); err != nil {
		t.Fatalf("Predict after restart: %v", err)
	}
}
