package settlement

import (
	"context"
	"errors"
	"fmt"
)

type step struct {
	leg  Leg
	undo func(context.Context) error
}

// staging tracks the legs applied so far and how to reverse each one.
type staging struct {
	steps []step
}

func (s *staging) add(leg Leg, undo func(context.Context) error) {
	s.steps = append(s.steps, step{leg: leg, undo: undo})
}

func (s *staging) empty() bool { return len(s.steps) == 0 }

func (s *staging) legs() []Leg {
	out := make([]Leg, len(s.steps))
	for i, st := range s.steps {
		out[i] = st.leg
	}
	return out
}

// rollback reverses the applied legs newest first. It attempts every
// reversal even after one fails.
func (s *staging) rollback(ctx context.Context) error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s leg %d to %s: %w", st.leg.Kind, i, st.leg.To, err))
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}
