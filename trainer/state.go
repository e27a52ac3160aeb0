package trainer

import (
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
)

// State is a stage of one training run. A run moves through the states in
// declaration order and ends in Done, or in Failed as soon as a stage errors.
type State int

const (
	Initialized State = iota
	DataLoaded
	Split
	ModelsBuilt
	Fitting
	Evaluated
	Persisted
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case DataLoaded:
		return "data_loaded"
	case Split:
		return "split"
	case ModelsBuilt:
		return "models_built"
	case Fitting:
		return "fitting"
	case Evaluated:
		return "evaluated"
	case Persisted:
		return "persisted"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// advance moves the run to next. Only the immediate successor is accepted.
func (t *Trainer) advance(next State) error {
	if t.state.Terminal() || next != t.state+1 {
		return errors.Newf("trainer: invalid transition %s -> %s", t.state, next)
	}
	t.state = next
	t.logger.Debug("stage reached", log.StageKey, next.String())
	return nil
}

// step runs the work of stage next and advances to it. If the work fails,
// the run becomes Failed and remembers next as the stage that failed.
func (t *Trainer) step(next State, work func() error) error {
	if t.state.Terminal() || next != t.state+1 {
		return errors.Newf("trainer: invalid transition %s -> %s", t.state, next)
	}
	if err := work(); err != nil {
		t.fail(next, err)
		return err
	}
	return t.advance(next)
}

// fail marks the run as failed at stage. It is a no-op once the run is terminal.
func (t *Trainer) fail(stage State, err error) {
	if t.state.Terminal() {
		return
	}
	t.state = Failed
	t.failedAt = stage
	t.logger.Error("training run failed", err, log.StageKey, stage.String())
	if rerr := t.errLog.Record(err); rerr != nil {
		t.logger.Warn("error log unavailable", log.PathKey, t.errLog.Path(), "cause", rerr.Error())
	}
}
