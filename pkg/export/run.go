package export

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a run.
type State int32

const (
	StateIdle State = iota
	StateConfiguring
	StateRunning
	StateCompleted
	StateAborted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateConfiguring: "configuring",
	StateRunning:     "running",
	StateCompleted:   "completed",
	StateAborted:     "aborted",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the run has finished.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// Progress is a snapshot of a run.
type Progress struct {
	RunID           string `json:"run_id"`
	State           State  `json:"state"`
	FramesWritten   int    `json:"frames_written"`
	FramesTotal     int    `json:"frames_total"`
	BytesWritten    int64  `json:"bytes_written"`
	CancelRequested bool   `json:"cancel_requested"`
	Output          string `json:"output"`
	Err             error  `json:"-"`
}

// Fraction returns the share of frames written, from 0 to 1.
func (p Progress) Fraction() float64 {
	if p.FramesTotal == 0 {
		return 0
	}
	return float64(p.FramesWritten) / float64(p.FramesTotal)
}

// Run is a handle on an export executing in the background. The worker
// goroutine is the only writer of the counters; any goroutine may read
// them or request cancellation.
type Run struct {
	id        string
	output    string
	selection []int

	state   atomic.Int32
	written atomic.Int64
	bytes   atomic.Int64
	cancel  atomic.Bool

	mu  sync.Mutex
	err error

	done chan struct{}
}

func newRun(id, output string, selection []int) *Run {
	r := &Run{
		id:        id,
		output:    output,
		selection: selection,
		done:      make(chan struct{}),
	}
	r.state.Store(int32(StateConfiguring))
	return r
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Selection returns the source frame indices in output order.
func (r *Run) Selection() []int {
	return append([]int(nil), r.selection...)
}

// State returns the current state.
func (r *Run) State() State {
	return State(r.state.Load())
}

// Progress returns a snapshot of the run.
func (r *Run) Progress() Progress {
	p := Progress{
		RunID:           r.id,
		State:           r.State(),
		FramesWritten:   int(r.written.Load()),
		FramesTotal:     len(r.selection),
		BytesWritten:    r.bytes.Load(),
		CancelRequested: r.cancel.Load(),
		Output:          r.output,
	}
	if p.State.Terminal() {
		p.Err = r.Err()
	}
	return p
}

// Cancel asks the run to stop at the next frame boundary. It returns
// immediately; use Wait or Done to observe the end of the run.
func (r *Run) Cancel() {
	r.cancel.Store(true)
}

// Done is closed when the run has finished and its output is finalized.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes or ctx is done. It returns nil for a
// completed run, ErrCancelled for an aborted one and the cause of a failure.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the terminal error of the run, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Run) finish(state State, err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.state.Store(int32(state))
	close(r.done)
}
