package webdom

import (
	"errors"
	"testing"
)

func TestPromiseResolve(t *testing.T) {
	p := NewPromise()
	if p.Settled() {
		t.Fatal("new promise is settled")
	}
	select {
	case <-p.Done():
		t.Fatal("Done() closed before settle")
	default:
	}

	p.Resolve(42)
	if !p.Settled() {
		t.Fatal("promise not settled after Resolve")
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("Done() not closed after Resolve")
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil", p.Err())
	}
	if got := p.Value(); got != 42 {
		t.Errorf("Value() = %v, want 42", got)
	}
}

func TestPromiseReject(t *testing.T) {
	p := NewPromise()
	cause := errors.New("boom")
	p.Reject(cause)

	if !p.Settled() {
		t.Fatal("promise not settled after Reject")
	}
	if !errors.Is(p.Err(), cause) {
		t.Errorf("Err() = %v, want %v", p.Err(), cause)
	}
	if p.Value() != nil {
		t.Errorf("Value() = %v, want nil", p.Value())
	}
}

func TestPromiseSettlesOnce(t *testing.T) {
	p := NewPromise()
	p.Resolve("first")
	p.Reject(errors.New("late rejection"))
	p.Resolve("late resolution")

	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil (first settle wins)", p.Err())
	}
	if got := p.Value(); got != "first" {
		t.Errorf("Value() = %v, want %q", got, "first")
	}
}
