package serviceerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestServiceErrorCodeAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New("slides.refresh", "query_failed", cause)

	if err.Error() != "slides.refresh.query_failed: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected error to unwrap to cause")
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if Code(wrapped) != "slides.refresh.query_failed" {
		t.Fatalf("unexpected code %q", Code(wrapped))
	}
	if Code(cause) != "" {
		t.Fatalf("expected empty code for plain error")
	}
}

func TestServiceErrorWithoutCause(t *testing.T) {
	err := New("catalog.get", "not_found", nil)
	if err.Error() != "catalog.get.not_found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
