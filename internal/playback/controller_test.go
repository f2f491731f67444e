package playback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wavelet-player/wavelet/internal/player"
	"github.com/wavelet-player/wavelet/internal/remote"
	"github.com/wavelet-player/wavelet/internal/shared"
	wtesting "github.com/wavelet-player/wavelet/internal/testing"
)

func newTestController(t *testing.T, opts Options) (*Controller, *wtesting.FakeProcess, *wtesting.FakeRemote) {
	t.Helper()

	proc := wtesting.NewFakeProcess()
	client := wtesting.NewFakeRemote()
	for _, id := range []string{"t1", "t2", "t3"} {
		client.StreamURLs[id] = &remote.StreamURL{
			URL:       "https://cdn.example.com/" + id + ".mp3",
			ExpiresAt: time.Now().Add(time.Hour),
		}
	}

	c := New(proc, client, opts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	return c, proc, client
}

// waitForChange consumes the change stream until the wanted state appears.
func waitForChange(t *testing.T, c *Controller, want State) Change {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case change := <-c.Changes():
			if change.State == want {
				return change
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s (current %s)", want, c.State())
			return Change{}
		}
	}
}

// waitForLoad polls the fake process until it accepted n loads.
func waitForLoad(t *testing.T, proc *wtesting.FakeProcess, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for proc.LoadCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for load #%d", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPlayEntryIdleToLoadingToPlaying(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}

	change := waitForChange(t, c, StateLoading)
	if change.Entry == nil || change.Entry.TrackID != "t1" {
		t.Errorf("Loading change entry = %+v, want t1", change.Entry)
	}

	waitForLoad(t, proc, 1)
	if proc.LoadURLs[0] != "https://cdn.example.com/t1.mp3" {
		t.Errorf("loaded URL = %q, want resolved CDN url", proc.LoadURLs[0])
	}

	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	if got := c.State(); got != StatePlaying {
		t.Errorf("State() = %s, want playing", got)
	}
}

func TestFinishedAutoAdvances(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})

	entries := c.Append("t1", "t2")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	proc.Emit(player.Event{Kind: player.EventFinished, TrackID: "t1"})
	waitForChange(t, c, StateFinished)
	waitForChange(t, c, StateLoading)

	waitForLoad(t, proc, 2)
	if proc.Loads[1] != "t2" {
		t.Errorf("second load = %q, want t2", proc.Loads[1])
	}

	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t2"})
	waitForChange(t, c, StatePlaying)

	if cur := c.Current(); cur == nil || cur.TrackID != "t2" {
		t.Errorf("Current() = %+v, want t2", cur)
	}
}

func TestFinishedOnExhaustedQueueGoesIdle(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	proc.Emit(player.Event{Kind: player.EventFinished, TrackID: "t1"})
	waitForChange(t, c, StateFinished)
	waitForChange(t, c, StateIdle)

	if cur := c.Current(); cur != nil {
		t.Errorf("Current() after exhaustion = %+v, want nil", cur)
	}
}

func TestStaleFinishedIsIgnored(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})

	entries := c.Append("t1", "t2")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	// User skips to t2; a Finished for t1 arrives afterwards.
	if !c.PlayNext(context.Background()) {
		t.Fatal("PlayNext() = false, want true")
	}
	waitForChange(t, c, StateLoading)
	waitForLoad(t, proc, 2)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t2"})
	waitForChange(t, c, StatePlaying)

	proc.Emit(player.Event{Kind: player.EventFinished, TrackID: "t1"})

	// Give the loop a moment; the stale event must not advance past t2.
	time.Sleep(50 * time.Millisecond)
	if cur := c.Current(); cur == nil || cur.TrackID != "t2" {
		t.Errorf("Current() = %+v, want t2 (stale finished ignored)", cur)
	}
	if got := c.State(); got != StatePlaying {
		t.Errorf("State() = %s, want playing", got)
	}
	if proc.LoadCount() != 2 {
		t.Errorf("LoadCount() = %d, want 2", proc.LoadCount())
	}
}

func TestResolutionFailureFailsWithoutLaunch(t *testing.T) {
	c, proc, client := newTestController(t, Options{})
	client.ResolveErr = fmt.Errorf("%w: connection refused", shared.ErrNetwork)

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}

	change := waitForChange(t, c, StateFailed)
	if !errors.Is(change.Err, shared.ErrStreamResolution) {
		t.Errorf("failure = %v, want ErrStreamResolution", change.Err)
	}
	if !errors.Is(change.Err, shared.ErrNetwork) {
		t.Errorf("failure = %v, want underlying ErrNetwork preserved", change.Err)
	}

	if proc.LoadCount() != 0 {
		t.Errorf("LoadCount() = %d, want 0 (no process launch)", proc.LoadCount())
	}
	if cur := c.Current(); cur == nil || cur.TrackID != "t1" {
		t.Errorf("Current() = %+v, want cursor unchanged on t1", cur)
	}
}

func TestResolutionTimeoutFails(t *testing.T) {
	c, proc, client := newTestController(t, Options{})
	client.ResolveDelay = time.Second

	entries := c.Append("t1")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.PlayEntry(ctx, entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}

	change := waitForChange(t, c, StateFailed)
	if !errors.Is(change.Err, shared.ErrStreamResolution) {
		t.Errorf("failure = %v, want ErrStreamResolution", change.Err)
	}
	if proc.LoadCount() != 0 {
		t.Errorf("LoadCount() = %d, want 0", proc.LoadCount())
	}
}

func TestExpiredStreamURLFails(t *testing.T) {
	c, _, client := newTestController(t, Options{})
	client.StreamURLs["t1"] = &remote.StreamURL{
		URL:       "https://cdn.example.com/t1.mp3",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}

	change := waitForChange(t, c, StateFailed)
	if !errors.Is(change.Err, shared.ErrStreamResolution) {
		t.Errorf("failure = %v, want ErrStreamResolution", change.Err)
	}
	if !errors.Is(change.Err, shared.ErrAuthExpired) {
		t.Errorf("failure = %v, want ErrAuthExpired preserved", change.Err)
	}
}

func TestLaunchFailurePreservesCause(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})
	cause := errors.New("mpv refused the url")
	proc.LoadErr = cause

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}

	change := waitForChange(t, c, StateFailed)
	if !errors.Is(change.Err, shared.ErrPlaybackLaunch) {
		t.Errorf("failure = %v, want ErrPlaybackLaunch", change.Err)
	}
	if !errors.Is(change.Err, cause) {
		t.Errorf("failure = %v, want launch cause preserved", change.Err)
	}
}

func TestStopCancelsInFlightLoad(t *testing.T) {
	c, proc, client := newTestController(t, Options{})
	client.ResolveDelay = 200 * time.Millisecond

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForChange(t, c, StateLoading)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitForChange(t, c, StateIdle)

	// The cancelled load must not launch the player or fail the session later.
	time.Sleep(300 * time.Millisecond)
	if proc.LoadCount() != 0 {
		t.Errorf("LoadCount() = %d, want 0 after cancelled load", proc.LoadCount())
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %s, want idle", got)
	}
}

func TestPauseResume(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	waitForChange(t, c, StatePaused)

	// Pausing again is a no-op.
	if err := c.Pause(); err != nil {
		t.Fatalf("second Pause() error = %v", err)
	}
	if proc.Pauses != 1 {
		t.Errorf("Pauses = %d, want 1", proc.Pauses)
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	waitForChange(t, c, StatePlaying)
}

func TestStallAndRecovery(t *testing.T) {
	c, proc, _ := newTestController(t, Options{StallTimeout: time.Minute})

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	proc.Emit(player.Event{Kind: player.EventStalled, TrackID: "t1"})
	waitForChange(t, c, StateStalled)

	proc.Emit(player.Event{Kind: player.EventResumed, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)
}

func TestStallTimeoutFailsTrack(t *testing.T) {
	c, proc, _ := newTestController(t, Options{StallTimeout: 50 * time.Millisecond})

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	proc.Emit(player.Event{Kind: player.EventStalled, TrackID: "t1"})
	waitForChange(t, c, StateStalled)

	change := waitForChange(t, c, StateFailed)
	if !errors.Is(change.Err, shared.ErrStallTimeout) {
		t.Errorf("failure = %v, want ErrStallTimeout", change.Err)
	}
}

func TestPlayerErrorFailsTrack(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc, 1)
	proc.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c, StatePlaying)

	cause := errors.New("decoder blew up")
	proc.Emit(player.Event{Kind: player.EventError, TrackID: "t1", Err: cause})
	change := waitForChange(t, c, StateFailed)
	if !errors.Is(change.Err, shared.ErrPlaybackLaunch) {
		t.Errorf("failure = %v, want ErrPlaybackLaunch", change.Err)
	}
	if !errors.Is(change.Err, cause) {
		t.Errorf("failure = %v, want player cause preserved", change.Err)
	}
}

func TestStopDuringLoadLandsAfterLoad(t *testing.T) {
	c, proc, _ := newTestController(t, Options{})
	proc.LoadDelay = 100 * time.Millisecond

	entries := c.Append("t1")
	if err := c.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for proc.LoadBegunCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the load to begin")
		}
		time.Sleep(time.Millisecond)
	}

	// Stop must not complete between the generation check and the load
	// command; the process would keep playing while the state reads idle.
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %s, want idle", got)
	}
	calls := proc.CallLog()
	if len(calls) == 0 || calls[len(calls)-1] != "stop" {
		t.Errorf("call order = %v, want stop after the in-flight load", calls)
	}
}

func TestControllersAreIndependent(t *testing.T) {
	c1, proc1, _ := newTestController(t, Options{})
	c2, _, _ := newTestController(t, Options{})

	entries := c1.Append("t1")
	if err := c1.PlayEntry(context.Background(), entries[0].Seq); err != nil {
		t.Fatalf("PlayEntry() error = %v", err)
	}
	waitForLoad(t, proc1, 1)
	proc1.Emit(player.Event{Kind: player.EventStarted, TrackID: "t1"})
	waitForChange(t, c1, StatePlaying)

	if got := c2.State(); got != StateIdle {
		t.Errorf("second controller State() = %s, want idle", got)
	}
	if c2.Current() != nil {
		t.Error("second controller has a current entry")
	}
}
