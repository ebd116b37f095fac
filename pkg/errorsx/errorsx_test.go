package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonLLMComplete)
	if Reason(err) != ReasonLLMComplete {
		t.Fatalf("expected reason %s, got %s", ReasonLLMComplete, Reason(err))
	}
	if !HasReason(err, ReasonLLMComplete) {
		t.Fatalf("expected HasReason true")
	}
	if got, want := err.Error(), "llm_complete: boom"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonToolExecute)
	second := Wrap(first, ReasonLLMFollowup)
	if Reason(second) != ReasonToolExecute {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestReasonNil(t *testing.T) {
	if Wrap(nil, ReasonLLMComplete) != nil {
		t.Fatalf("expected nil wrap to stay nil")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
