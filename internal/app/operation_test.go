package app

import (
	"errors"
	"testing"
)

func TestNewOperation(t *testing.T) {
	op := NewOperation("pin add", "38.72,-9.14")

	if op.Operation != "pin add" || op.Parameters != "38.72,-9.14" {
		t.Errorf("op = %+v", op)
	}
	if op.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
	}
	if op.Persisted() {
		t.Error("new operation reports persisted")
	}
}

func TestOperation_Persisted(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{name: "not persisted when ID is 0", id: 0, want: false},
		{name: "persisted when ID is positive", id: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &Operation{ID: tt.id}
			if got := op.Persisted(); got != tt.want {
				t.Errorf("Persisted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation("album refresh", "")

	if err := op.Fail(nil); err != nil {
		t.Errorf("Fail(nil) = %v", err)
	}
	if op.Status != StatusSuccess {
		t.Errorf("Status after Fail(nil) = %q", op.Status)
	}

	boom := errors.New("boom")
	if err := op.Fail(boom); !errors.Is(err, boom) {
		t.Errorf("Fail() = %v, want boom", err)
	}
	if op.Status != StatusError {
		t.Errorf("Status = %q, want %q", op.Status, StatusError)
	}
}
