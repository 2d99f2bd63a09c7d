// Package media defines the binary media storage collaborator: segment
// sample buffers are written once under an opaque reference at segmentation
// time and fetched back by scoring workers.
//
// Two implementations are provided: [MemoryStore] for tests and single
// process pipelines, and [BadgerStore] for durable local storage. Remote
// blob services live behind their own [Store] implementations.
package media

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when no clip exists under the given
// reference. The scoring coordinator treats it as a counted skip, never a
// crash.
var ErrNotFound = errors.New("media: clip not found")

// Clip is a stored sample buffer with its rate. Channels are downmixed
// before storage, so clips are always mono.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Store is the media storage and retrieval contract.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores clip under ref, overwriting any previous clip.
	Put(ctx context.Context, ref string, clip Clip) error

	// Get returns the clip stored under ref, or [ErrNotFound].
	Get(ctx context.Context, ref string) (Clip, error)
}
