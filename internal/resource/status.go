package resource

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

const (
	stateIdle    = "idle"
	stateLoading = "loading"
	stateReady   = "ready"
	stateFailed  = "failed"

	eventFetch   = "fetch"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventReset   = "reset"
)

// statusMachine drives Idle -> Loading -> {Ready, Failed} -> Loading -> ...
// The owning store serializes access, so no callbacks are registered.
type statusMachine struct {
	fsm *fsm.FSM
}

func newStatusMachine() *statusMachine {
	return &statusMachine{
		fsm: fsm.NewFSM(
			stateIdle,
			fsm.Events{
				{Name: eventFetch, Src: []string{stateIdle, stateReady, stateFailed}, Dst: stateLoading},
				{Name: eventSucceed, Src: []string{stateLoading, stateReady, stateFailed}, Dst: stateReady},
				// Detail fetches can fail outside a list fetch.
				{Name: eventFail, Src: []string{stateIdle, stateLoading, stateReady, stateFailed}, Dst: stateFailed},
				{Name: eventReset, Src: []string{stateIdle, stateLoading, stateReady, stateFailed}, Dst: stateIdle},
			},
			fsm.Callbacks{},
		),
	}
}

// fire applies event. Staying in the same state is not an error.
func (m *statusMachine) fire(event string) error {
	err := m.fsm.Event(context.Background(), event)
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}

func (m *statusMachine) current() Status {
	switch m.fsm.Current() {
	case stateLoading:
		return StatusLoading
	case stateReady:
		return StatusReady
	case stateFailed:
		return StatusFailed
	default:
		return StatusIdle
	}
}
