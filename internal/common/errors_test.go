package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("connection reset")
	err := TransportError(base)
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match base")
	}
	if CodeOf(err) != CodeTransport {
		t.Fatalf("expected %s, got %s", CodeTransport, CodeOf(err))
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("checkout: %w", ValidationError("cart is empty"))
	if CodeOf(err) != CodeValidation {
		t.Fatalf("expected %s, got %s", CodeValidation, CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty code for plain error")
	}
}

func TestRemoteErrorDetails(t *testing.T) {
	details := []string{"Widget: Insufficient stock. Available: 1, Requested: 3"}
	err := RemoteError(400, "cart validation failed", details)
	var app *AppError
	if !errors.As(err, &app) {
		t.Fatalf("expected AppError")
	}
	if app.HTTPStatus != 400 {
		t.Fatalf("expected status 400, got %d", app.HTTPStatus)
	}
	if got := app.Details.([]string); len(got) != 1 {
		t.Fatalf("expected details preserved, got %v", got)
	}
}
