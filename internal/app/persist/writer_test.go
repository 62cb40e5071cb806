package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Put(ctx context.Context, name string, body []byte) error {
	args := m.Called(ctx, name, body)
	return args.Error(0)
}

func (m *mockSink) Close() error {
	return m.Called().Error(0)
}

// recordingSink keeps every body it receives, per snapshot name.
type recordingSink struct {
	mu   sync.Mutex
	puts map[string][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{puts: make(map[string][]string)}
}

func (s *recordingSink) Put(_ context.Context, name string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts[name] = append(s.puts[name], string(body))
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) last(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	bodies := s.puts[name]
	if len(bodies) == 0 {
		return ""
	}
	return bodies[len(bodies)-1]
}

// switchSink fails Put for the snapshot names currently listed in fail.
type switchSink struct {
	mu   sync.Mutex
	fail map[string]error
}

func (s *switchSink) Put(_ context.Context, name string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[name]
}

func (s *switchSink) Close() error { return nil }

func (s *switchSink) set(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail == nil {
		s.fail = make(map[string]error)
	}
	s.fail[name] = err
}

func newFileSink(t *testing.T) (*FileSink, string, string) {
	t.Helper()
	dir := t.TempDir()
	users := filepath.Join(dir, "session.json")
	rooms := filepath.Join(dir, "rooms.json")

	sink, err := NewFileSink(map[string]string{UsersSnapshot: users, RoomsSnapshot: rooms})
	require.NoError(t, err)

	return sink, users, rooms
}

func TestWriter_Sync_WritesIndentedJSONArray(t *testing.T) {
	req := require.New(t)
	sink, usersPath, _ := newFileSink(t)
	writer := NewWriter([]Sink{sink}, false)
	defer writer.Close()

	users := []map[string]any{{"id": "a", "name": "Alice"}}
	req.NoError(writer.Save(context.Background(), UsersSnapshot, users))

	body, err := os.ReadFile(usersPath)
	req.NoError(err)
	req.Equal("[\n  {\n    \"id\": \"a\",\n    \"name\": \"Alice\"\n  }\n]", string(body))
}

func TestWriter_Seed_ResetsEveryFile(t *testing.T) {
	req := require.New(t)
	sink, usersPath, roomsPath := newFileSink(t)
	req.NoError(os.WriteFile(usersPath, []byte(`[{"id":"stale"}]`), 0o644))

	writer := NewWriter([]Sink{sink}, false)
	req.NoError(writer.Seed(context.Background(), UsersSnapshot, RoomsSnapshot))

	for _, path := range []string{usersPath, roomsPath} {
		body, err := os.ReadFile(path)
		req.NoError(err)
		req.Equal("[]", string(body))
	}
}

func TestWriter_Sync_ReportsSinkErrorsButWritesOthers(t *testing.T) {
	req := require.New(t)
	failing := &mockSink{}
	failing.On("Put", mock.Anything, RoomsSnapshot, mock.Anything).Return(errors.New("disk full"))
	failing.On("Close").Return(nil)
	recording := newRecordingSink()

	writer := NewWriter([]Sink{failing, recording}, false)

	err := writer.Save(context.Background(), RoomsSnapshot, []string{"r1"})

	req.ErrorContains(err, "disk full")
	req.JSONEq(`["r1"]`, recording.last(RoomsSnapshot))
	req.NoError(writer.Close())
	failing.AssertExpectations(t)
}

func TestWriter_Err_TracksEachSnapshotSeparately(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given a sink that rejects only the users snapshot
	diskFull := errors.New("disk full")
	sink := &switchSink{}
	sink.set(UsersSnapshot, diskFull)
	writer := NewWriter([]Sink{sink}, false)

	// When users fails and rooms succeeds afterwards
	req.Error(writer.Save(ctx, UsersSnapshot, []string{}))
	req.NoError(writer.Save(ctx, RoomsSnapshot, []string{}))

	// Then the users failure is still reported
	req.ErrorIs(writer.Err(), diskFull)
	req.ErrorContains(writer.Err(), "users snapshot")

	// And it clears once users is written again
	sink.set(UsersSnapshot, nil)
	req.NoError(writer.Save(ctx, UsersSnapshot, []string{}))
	req.NoError(writer.Err())
}

func TestWriter_Async_ErrReportsBackgroundFailures(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given an async writer whose only sink fails
	unreachable := errors.New("unreachable")
	sink := &switchSink{}
	sink.set(RoomsSnapshot, unreachable)
	writer := NewWriter([]Sink{sink}, true)
	t.Cleanup(func() { _ = writer.Close() })

	// When a snapshot is queued and written in the background
	req.NoError(writer.Save(ctx, RoomsSnapshot, []string{"r1"}))
	writer.Flush()

	// Then the failure is visible through Err
	req.ErrorIs(writer.Err(), unreachable)

	// And a later successful write clears it
	sink.set(RoomsSnapshot, nil)
	req.NoError(writer.Save(ctx, RoomsSnapshot, []string{"r1"}))
	writer.Flush()
	req.NoError(writer.Err())
}

func TestWriter_Save_SnapshotsValueAtCallTime(t *testing.T) {
	req := require.New(t)
	recording := newRecordingSink()
	writer := NewWriter([]Sink{recording}, true)

	state := []string{"first"}
	req.NoError(writer.Save(context.Background(), UsersSnapshot, state))
	state[0] = "mutated"
	writer.Flush()

	req.JSONEq(`["first"]`, recording.last(UsersSnapshot))
	req.NoError(writer.Close())
}

func TestWriter_Async_LastWriteWins(t *testing.T) {
	req := require.New(t)
	recording := newRecordingSink()
	writer := NewWriter([]Sink{recording}, true)

	for i := range 50 {
		req.NoError(writer.Save(context.Background(), RoomsSnapshot, []int{i}))
	}
	req.NoError(writer.Close())

	req.JSONEq(`[49]`, recording.last(RoomsSnapshot))
	req.LessOrEqual(len(recording.puts[RoomsSnapshot]), 50)
}

func TestWriter_Async_SaveAfterCloseFails(t *testing.T) {
	writer := NewWriter(nil, true)
	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close())

	require.Error(t, writer.Save(context.Background(), UsersSnapshot, []string{}))
}

func TestWriter_Save_MarshalError(t *testing.T) {
	writer := NewWriter(nil, false)

	err := writer.Save(context.Background(), UsersSnapshot, make(chan int))

	require.ErrorContains(t, err, "marshal users snapshot")
}

func TestFileSink_IgnoresUnknownSnapshot(t *testing.T) {
	sink, _, _ := newFileSink(t)

	require.NoError(t, sink.Put(context.Background(), "other", []byte("[]")))
}

func TestNewFileSink_RejectsEmptyPath(t *testing.T) {
	_, err := NewFileSink(map[string]string{UsersSnapshot: ""})

	require.Error(t, err)
}

func TestNewFileSink_CreatesParentDirectory(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "nested", "state", "rooms.json")

	sink, err := NewFileSink(map[string]string{RoomsSnapshot: path})
	req.NoError(err)
	req.NoError(sink.Put(context.Background(), RoomsSnapshot, []byte("[]")))

	req.FileExists(path)
}

func TestFileSink_ReplacesFileWithoutLeftovers(t *testing.T) {
	req := require.New(t)
	sink, usersPath, _ := newFileSink(t)
	ctx := context.Background()

	req.NoError(sink.Put(ctx, UsersSnapshot, []byte(`["old"]`)))
	req.NoError(sink.Put(ctx, UsersSnapshot, []byte(`["new"]`)))

	raw, err := os.ReadFile(usersPath)
	req.NoError(err)
	req.JSONEq(`["new"]`, string(raw))

	entries, err := os.ReadDir(filepath.Dir(usersPath))
	req.NoError(err)
	req.Len(entries, 1, "temporary files must not remain next to the snapshot")
}
