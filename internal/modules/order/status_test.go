package order

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPlaced, StatusProcessing, true},
		{StatusPlaced, StatusCancelled, true},
		{StatusPlaced, StatusShipped, false},
		{StatusPlaced, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPlaced, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusShipped, StatusProcessing, false},
		{StatusDelivered, StatusProcessing, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPlaced, false},
		{StatusCancelled, StatusDelivered, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestAllowedNextTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusDelivered, StatusCancelled} {
		next := AllowedNext(s)
		if next == nil {
			t.Fatalf("AllowedNext(%s) returned nil, want empty slice", s)
		}
		if len(next) != 0 {
			t.Errorf("AllowedNext(%s) = %v, want no transitions", s, next)
		}
	}
}

func TestTransitionErrorCarriesAllowedSet(t *testing.T) {
	err := NewTransitionError(StatusDelivered, StatusProcessing)
	if err.Current != StatusDelivered || err.Attempted != StatusProcessing {
		t.Fatalf("unexpected error fields: %+v", err)
	}
	if len(err.Allowed) != 0 {
		t.Errorf("expected empty allowed set for terminal state, got %v", err.Allowed)
	}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
