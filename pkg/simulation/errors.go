package simulation

import "errors"

var (
	// ErrNoFailedNodes means the request named nothing to fail.
	ErrNoFailedNodes = errors.New("no failed nodes specified")

	// ErrIndexOutOfRange means a failed-node index does not exist in the graph.
	ErrIndexOutOfRange = errors.New("failed node index out of range")
)
