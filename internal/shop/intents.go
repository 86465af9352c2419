package shop

import (
	"context"
	"fmt"
)

// Intent names a UI interaction. The dispatch table below maps intents onto
// state-machine transitions so the session can be driven (and tested)
// independent of any event wiring.
type Intent string

const (
	IntentIncrease Intent = "increase"
	IntentDecrease Intent = "decrease"
	IntentSet      Intent = "set"
	IntentRemove   Intent = "remove"
	IntentBegin    Intent = "begin_checkout"
	IntentCancel   Intent = "cancel_checkout"
	IntentSubmit   Intent = "submit_order"
	IntentFallback Intent = "show_fallback"
)

// Command is one UI intent with its arguments.
type Command struct {
	Intent    Intent `json:"intent"`
	ProductID string `json:"productId,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Form      Form   `json:"form,omitempty"`
	Method    string `json:"method,omitempty"`
}

// Result is the transition outcome relevant to the caller. Summary is always
// the post-transition derivation.
type Result struct {
	State    State     `json:"state"`
	Summary  Summary   `json:"summary"`
	Change   *Change   `json:"change,omitempty"`
	Dispatch *Dispatch `json:"dispatch,omitempty"`
	Fallback *Fallback `json:"fallback,omitempty"`
}

type transition func(ctx context.Context, s *Session, cmd Command) (Result, error)

var transitions = map[Intent]transition{
	IntentIncrease: func(ctx context.Context, s *Session, cmd Command) (Result, error) {
		change, err := s.Adjust(ctx, cmd.ProductID, +1)
		return Result{Change: &change}, err
	},
	IntentDecrease: func(ctx context.Context, s *Session, cmd Command) (Result, error) {
		change, err := s.Adjust(ctx, cmd.ProductID, -1)
		return Result{Change: &change}, err
	},
	IntentSet: func(ctx context.Context, s *Session, cmd Command) (Result, error) {
		change, err := s.SetQuantity(ctx, cmd.ProductID, cmd.Quantity)
		return Result{Change: &change}, err
	},
	IntentRemove: func(ctx context.Context, s *Session, cmd Command) (Result, error) {
		change, err := s.SetQuantity(ctx, cmd.ProductID, "0")
		return Result{Change: &change}, err
	},
	IntentBegin: func(ctx context.Context, s *Session, _ Command) (Result, error) {
		_, err := s.BeginCheckout(ctx)
		return Result{}, err
	},
	IntentCancel: func(ctx context.Context, s *Session, _ Command) (Result, error) {
		s.CancelCheckout(ctx)
		return Result{}, nil
	},
	IntentSubmit: func(ctx context.Context, s *Session, cmd Command) (Result, error) {
		dispatch, err := s.SubmitOrder(ctx, cmd.Form)
		if err != nil {
			return Result{}, err
		}
		return Result{Dispatch: &dispatch}, nil
	},
	IntentFallback: func(ctx context.Context, s *Session, cmd Command) (Result, error) {
		fb, err := s.ShowFallback(ctx, cmd.Method)
		if err != nil {
			return Result{}, err
		}
		return Result{Fallback: &fb}, nil
	},
}

// Apply routes a command through the dispatch table.
func (s *Session) Apply(ctx context.Context, cmd Command) (Result, error) {
	step, ok := transitions[cmd.Intent]
	if !ok {
		return Result{}, fmt.Errorf("shop: unknown intent %q", cmd.Intent)
	}
	res, err := step(ctx, s, cmd)
	res.State = s.State()
	res.Summary = s.Summarize()
	return res, err
}
