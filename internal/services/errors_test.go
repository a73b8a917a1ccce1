package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := fmt.Errorf("connection reset")
	err := Wrap(ErrTransient, "translating", "batch 3", "llm request failed", base)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("expected wrapped error to match ErrTransient")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve the cause")
	}
	want := "transient failure: translating: batch 3: llm request failed: connection reset"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "extracting", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("nil marker should default to ErrTransient")
	}
}

func TestFailureKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Wrap(ErrValidation, "validating", "", "no audio stream", nil), "validation"},
		{Wrap(ErrTranslationFormat, "translating", "", "count mismatch", nil), "translation_format"},
		{Wrap(ErrMux, "muxing", "", "", nil), "mux"},
		{errors.New("plain"), "transient"},
	}
	for _, tc := range cases {
		if got := FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(Wrap(ErrValidation, "validating", "", "", nil)) {
		t.Fatal("validation errors are not transient")
	}
	if IsTransient(Wrap(ErrTranslationFormat, "translating", "", "", nil)) {
		t.Fatal("format errors are not transient")
	}
	if !IsTransient(Wrap(ErrTransient, "transcribing", "", "", nil)) {
		t.Fatal("expected transient marker to be transient")
	}
	if IsTransient(nil) {
		t.Fatal("nil is not transient")
	}
}
