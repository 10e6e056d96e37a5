// Package wizard runs a sequence of steps with forward and backward
// navigation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrCancelled is returned when a step cancels the wizard.
var ErrCancelled = errors.New("wizard cancelled")

// Outcome tells the orchestrator where to go after a step.
type Outcome int

const (
	// Next advances to the following step.
	Next Outcome = iota
	// Previous returns to the most recently completed step.
	Previous
	// Cancel stops the wizard with ErrCancelled.
	Cancel
	// Finish stops the wizard successfully, skipping remaining steps.
	Finish
)

func (o Outcome) String() string {
	switch o {
	case Next:
		return "next"
	case Previous:
		return "previous"
	case Cancel:
		return "cancel"
	case Finish:
		return "finish"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// State is the mutable value threaded through the steps.
type State interface {
	// SetShowBack is called before each step with whether going back makes
	// sense, i.e. whether an interactive step has been completed.
	SetShowBack(bool)
}

// Step is one unit of the wizard.
type Step[C State] interface {
	Name() string
	// Interactive reports whether the step asks the user anything.
	Interactive() bool
	// ShouldExecute reports whether the step applies to c. It is not
	// consulted when the wizard moves back to the step.
	ShouldExecute(c C) bool
	Execute(ctx context.Context, c C) (Outcome, error)
}

// Orchestrator runs steps in order.
type Orchestrator[C State] struct {
	steps []Step[C]
	log   *slog.Logger
}

// New returns an orchestrator over steps.
func New[C State](log *slog.Logger, steps ...Step[C]) *Orchestrator[C] {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator[C]{steps: steps, log: log}
}

// Run executes the steps against c. It returns nil when the last step
// completes or a step finishes early, ErrCancelled when a step cancels, and
// a step's error as is.
//
// Completed steps are pushed on a history stack. Previous pops the stack and
// re-executes that step unconditionally; a Previous with an empty history
// presents the same step again. Skipped steps never enter the history, so
// they are invisible to backward navigation.
func (o *Orchestrator[C]) Run(ctx context.Context, c C) error {
	var history []int
	cursor := 0
	movingBackward := false

	for cursor >= 0 && cursor < len(o.steps) {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := o.steps[cursor]
		if !movingBackward && !step.ShouldExecute(c) {
			o.log.Debug("wizard step skipped", "step", step.Name())
			cursor++
			continue
		}

		c.SetShowBack(o.interactiveIn(history))
		outcome, err := step.Execute(ctx, c)
		movingBackward = false
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
		o.log.Debug("wizard step done", "step", step.Name(), "outcome", outcome)

		switch outcome {
		case Next:
			history = append(history, cursor)
			cursor++
		case Previous:
			if len(history) == 0 {
				o.log.Debug("wizard cannot go back further", "step", step.Name())
				continue
			}
			cursor = history[len(history)-1]
			history = history[:len(history)-1]
			movingBackward = true
		case Cancel:
			return ErrCancelled
		case Finish:
			return nil
		default:
			return fmt.Errorf("%s: unknown outcome %v", step.Name(), outcome)
		}
	}
	return nil
}

func (o *Orchestrator[C]) interactiveIn(history []int) bool {
	for _, i := range history {
		if o.steps[i].Interactive() {
			return true
		}
	}
	return false
}
