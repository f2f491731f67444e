// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/player"
	"github.com/wavelet-player/wavelet/internal/remote"
	"github.com/wavelet-player/wavelet/internal/shared"
)

// FakeProcess is a scripted stand-in for the audio player process. Tests drive
// it by emitting events; it records every command it receives.
type FakeProcess struct {
	mu        sync.Mutex
	events    chan player.Event
	closed    bool
	LoadErr   error
	LoadDelay time.Duration // blocks each load before it is recorded
	begun     int
	calls     []string // command names in arrival order
	Loads     []string // track ids in load order
	LoadURLs  []string
	Pauses    int
	Resumes   int
	Stops     int
	Seeks     []time.Duration
	Volumes   []int
}

// NewFakeProcess creates a fake with a generously buffered event channel.
func NewFakeProcess() *FakeProcess {
	return &FakeProcess{events: make(chan player.Event, 64)}
}

// Emit pushes an event into the stream, preserving emission order.
func (f *FakeProcess) Emit(ev player.Event) {
	f.events <- ev
}

func (f *FakeProcess) Load(url, trackID string) error {
	f.mu.Lock()
	f.begun++
	delay := f.LoadDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.calls = append(f.calls, "load")
	f.Loads = append(f.Loads, trackID)
	f.LoadURLs = append(f.LoadURLs, url)
	return nil
}

func (f *FakeProcess) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pauses++
	return nil
}

func (f *FakeProcess) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resumes++
	return nil
}

func (f *FakeProcess) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	f.Stops++
	return nil
}

func (f *FakeProcess) Seek(offset time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Seeks = append(f.Seeks, offset)
	return nil
}

func (f *FakeProcess) SetVolume(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Volumes = append(f.Volumes, percent)
	return nil
}

func (f *FakeProcess) Events() <-chan player.Event {
	return f.events
}

func (f *FakeProcess) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// LoadCount returns how many loads the process accepted.
func (f *FakeProcess) LoadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Loads)
}

// LoadBegunCount returns how many loads have started, including ones still
// sleeping on LoadDelay.
func (f *FakeProcess) LoadBegunCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begun
}

// CallLog returns a copy of the load/stop commands in arrival order.
func (f *FakeProcess) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeRemote is a scripted [remote.Client].
type FakeRemote struct {
	mu sync.Mutex

	Deltas        map[catalog.EntityClass]*catalog.Delta
	FetchErr      error
	FetchErrTimes int // when > 0, only the first N fetches fail
	FetchCalls    int

	StreamURLs   map[string]*remote.StreamURL
	ResolveErr   error
	ResolveDelay time.Duration // blocks resolution, honoring ctx cancellation
	ResolveCalls int
}

// NewFakeRemote creates an empty fake remote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Deltas:     make(map[catalog.EntityClass]*catalog.Delta),
		StreamURLs: make(map[string]*remote.StreamURL),
	}
}

func (f *FakeRemote) FetchDelta(ctx context.Context, class catalog.EntityClass, since catalog.Checkpoint) (*catalog.Delta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.FetchCalls++
	if f.FetchErr != nil && (f.FetchErrTimes == 0 || f.FetchCalls <= f.FetchErrTimes) {
		return nil, f.FetchErr
	}
	if delta, ok := f.Deltas[class]; ok {
		return delta, nil
	}
	return &catalog.Delta{Class: class, Checkpoint: "empty"}, nil
}

func (f *FakeRemote) ResolveStreamURL(ctx context.Context, trackID string) (*remote.StreamURL, error) {
	f.mu.Lock()
	delay := f.ResolveDelay
	f.ResolveCalls++
	resolveErr := f.ResolveErr
	stream, ok := f.StreamURLs[trackID]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if resolveErr != nil {
		return nil, resolveErr
	}
	if !ok {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, trackID)
	}
	return stream, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
