/*
Package persist exports registry snapshots to one or more storage sinks.

Every mutation in the relay results in a full JSON snapshot of the affected registry.
The in-memory registries stay the source of truth; snapshots are an export and are
never read back.
*/
package persist

import "context"

// Snapshot names.
const (
	UsersSnapshot = "users"
	RoomsSnapshot = "rooms"
)

// Snapshotter is what the relay calls after a mutation.
// v is marshaled to JSON at call time, so later mutations do not leak into it.
type Snapshotter interface {
	Save(ctx context.Context, name string, v any) error
}

// Reporter is implemented by snapshotters that can report failures after Save has
// returned, e.g. when writes happen in the background.
type Reporter interface {
	Err() error
}

// Sink stores the serialized snapshot under name, replacing any previous version.
type Sink interface {
	Put(ctx context.Context, name string, body []byte) error
	Close() error
}

// Discard is a Snapshotter that drops everything.
type Discard struct{}

// Save implements Snapshotter.
func (Discard) Save(context.Context, string, any) error { return nil }
