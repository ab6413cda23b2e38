package pipeline

import (
	"fmt"
	"time"
)

// State 流水线状态
type State string

const (
	StateReceived         State = "received"
	StateTranscribed      State = "transcribed"
	StateProofread        State = "proofread"
	StateCondensed        State = "condensed"
	StateContextRetrieved State = "context_retrieved"
	StateSynthesized      State = "synthesized"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Transition 一次状态迁移
type Transition struct {
	From    State         `json:"from"`
	To      State         `json:"to"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"`
	Note    string        `json:"note,omitempty"`
}

// StageError 阶段外部调用失败导致流水线进入 Failed
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// run 单次流水线执行的状态记录
type run struct {
	id          string
	source      string
	state       State
	last        time.Time
	transitions []Transition
}

func newRun(id, source string) *run {
	return &run{
		id:     id,
		source: source,
		state:  StateReceived,
		last:   time.Now(),
	}
}

func (r *run) advance(to State, note string) {
	now := time.Now()
	r.transitions = append(r.transitions, Transition{
		From:    r.state,
		To:      to,
		At:      now,
		Elapsed: now.Sub(r.last),
		Note:    note,
	})
	r.state = to
	r.last = now
}

func (r *run) fail(stage State, err error) *StageError {
	r.advance(StateFailed, string(stage))
	return &StageError{Stage: stage, Err: err}
}
