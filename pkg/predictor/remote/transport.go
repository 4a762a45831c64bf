// Package remote runs predictions against an out-of-process model server
// over a request/reply socket. The wire format is JSON; the socket layer is
// abstracted so the same client and server run over NNG (build tag "nng"),
// ZeroMQ (build tag "zmq"), or an in-memory pipe in tests.
package remote

import (
	"io"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
)

// Socket is a messaging socket that can send and receive whole messages.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// DialSocket is a socket that connects to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// ListenSocket is a socket that binds to an address.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// SocketFactory creates the request and reply sides of the predictor
// protocol. Implementations provide real NNG or ZeroMQ sockets, or mocks
// for testing.
type SocketFactory interface {
	NewReqSocket() (DialSocket, error)
	NewRepSocket() (ListenSocket, error)
}

// PredictRequest is one prediction round trip: the full feature matrix plus
// the graph structure the model should condition on.
type PredictRequest struct {
	Features [][]float64  `json:"features"`
	Edges    []graph.Edge `json:"edges,omitempty"`
	Weights  []float64    `json:"weights,omitempty"`
}

// PredictResponse carries the probability matrix, or a server-side error in
// ErrorMessage. The two fields are mutually exclusive.
type PredictResponse struct {
	Probabilities [][]float64 `json:"probabilities,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
}
