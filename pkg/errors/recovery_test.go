package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_KeepsExistingError(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = ErrSingularMatrix
		panic("boom")
	}

	err := testFunc()
	if !Is(err, ErrSingularMatrix) {
		t.Fatalf("original error should be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected panic value in message, got %q", err.Error())
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantErr   bool
		wantPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "error", fn: func() error { return ErrEmptyData }, wantErr: true},
		{name: "panic", fn: func() error {
			var s []int
			_ = s[3]
			return nil
		}, wantErr: true, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SafeExecute() error = %v, wantErr %v", err, tt.wantErr)
			}
			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Errorf("PanicError = %v, want %v", got, tt.wantPanic)
			}
		})
	}
}

func TestPanicErrorUnwrap(t *testing.T) {
	err := SafeExecute("wire.Decode", func() error {
		panic(ErrMalformedFrame)
	})
	if !Is(err, ErrMalformedFrame) {
		t.Errorf("panic value should be reachable through Unwrap, got %v", err)
	}

	err = SafeExecute("op", func() error { panic(42) })
	var panicErr *PanicError
	if !As(err, &panicErr) || panicErr.Unwrap() != nil {
		t.Errorf("non-error panic value should not unwrap, got %v", err)
	}
}
