package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/contextweaver/internal/logging"
)

type trace struct {
	steps    []string
	showBack []bool
}

func (t *trace) SetShowBack(v bool) { t.showBack = append(t.showBack, v) }

// scripted is a step replaying a fixed list of outcomes, one per execution.
type scripted struct {
	name        string
	interactive bool
	skip        bool
	outcomes    []Outcome
	err         error
}

func (s *scripted) Name() string              { return s.name }
func (s *scripted) Interactive() bool         { return s.interactive }
func (s *scripted) ShouldExecute(*trace) bool { return !s.skip }

func (s *scripted) Execute(_ context.Context, t *trace) (Outcome, error) {
	t.steps = append(t.steps, s.name)
	if s.err != nil {
		return Next, s.err
	}
	if len(s.outcomes) == 0 {
		return Next, nil
	}
	o := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return o, nil
}

func run(t *testing.T, steps ...Step[*trace]) (*trace, error) {
	t.Helper()
	tr := &trace{}
	err := New(logging.Discard(), steps...).Run(context.Background(), tr)
	return tr, err
}

func TestRunAllNext(t *testing.T) {
	t.Parallel()

	tr, err := run(t,
		&scripted{name: "S1", interactive: true},
		&scripted{name: "S2", interactive: true},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"S1", "S2"}, tr.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunReentry(t *testing.T) {
	t.Parallel()

	tr, err := run(t,
		&scripted{name: "S1", interactive: true},
		&scripted{name: "S2", interactive: true, outcomes: []Outcome{Previous, Next}},
		&scripted{name: "S3", interactive: true, outcomes: []Outcome{Finish}},
		&scripted{name: "S4", interactive: true},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"S1", "S2", "S1", "S2", "S3"}, tr.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, true, false, true, true}, tr.showBack); diff != "" {
		t.Errorf("showBack mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSkippedStepInvisible(t *testing.T) {
	t.Parallel()

	tr, err := run(t,
		&scripted{name: "S1", interactive: true},
		&scripted{name: "S2", interactive: true, skip: true},
		&scripted{name: "S3", interactive: true, outcomes: []Outcome{Previous, Next}},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Back from S3 lands on S1, never on the skipped S2.
	if diff := cmp.Diff([]string{"S1", "S3", "S1", "S3"}, tr.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBackForcesExecution(t *testing.T) {
	t.Parallel()

	s1 := &scripted{name: "S1", interactive: true}
	s2 := &scripted{name: "S2", interactive: true, outcomes: []Outcome{Previous}}
	tr := &trace{}

	// S1 runs once, then stops applying. Going back must still run it.
	steps := []Step[*trace]{
		&toggle{scripted: s1},
		s2,
	}
	if err := New(logging.Discard(), steps...).Run(context.Background(), tr); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"S1", "S2", "S1", "S2"}, tr.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

// toggle applies only until it has executed once.
type toggle struct {
	*scripted
	ran bool
}

func (s *toggle) ShouldExecute(*trace) bool { return !s.ran }

func (s *toggle) Execute(ctx context.Context, t *trace) (Outcome, error) {
	s.ran = true
	return s.scripted.Execute(ctx, t)
}

func TestRunPreviousOnFirstStep(t *testing.T) {
	t.Parallel()

	tr, err := run(t,
		&scripted{name: "S1", interactive: true, outcomes: []Outcome{Previous, Next}},
		&scripted{name: "S2"},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"S1", "S1", "S2"}, tr.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunShowBackIgnoresNonInteractive(t *testing.T) {
	t.Parallel()

	tr, err := run(t,
		&scripted{name: "discover"},
		&scripted{name: "S1", interactive: true},
		&scripted{name: "S2", interactive: true},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]bool{false, false, true}, tr.showBack); diff != "" {
		t.Errorf("showBack mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCancel(t *testing.T) {
	t.Parallel()

	tr, err := run(t,
		&scripted{name: "S1", outcomes: []Outcome{Cancel}},
		&scripted{name: "S2"},
	)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if diff := cmp.Diff([]string{"S1"}, tr.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStepError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := run(t,
		&scripted{name: "S1", err: boom},
		&scripted{name: "S2"},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New[*trace](logging.Discard(), &scripted{name: "S1"}).Run(ctx, &trace{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunNoSteps(t *testing.T) {
	t.Parallel()

	if _, err := run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	if Finish.String() != "finish" || Outcome(42).String() != "Outcome(42)" {
		t.Error("unexpected outcome names")
	}
}
