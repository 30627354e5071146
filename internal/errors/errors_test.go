package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCodeThroughFmt(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := fmt.Errorf("load catalog: %w", Wrap(CodeUpstreamFailure, cause, "catalog unreachable"))

	if got := CodeOf(err); got != CodeUpstreamFailure {
		t.Fatalf("unexpected code: %s", got)
	}
	if got := StatusOf(err); got != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", got)
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
	if !stdErrors.Is(err, New(CodeUpstreamFailure, "")) {
		t.Fatalf("expected code comparison via errors.Is")
	}
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_CUSTOM"
	Register(code, Attributes{Message: "custom", Severity: SeverityWarning, Status: http.StatusConflict})

	err := New(code, "")
	if err.Message() != "custom" {
		t.Fatalf("expected default message, got %q", err.Message())
	}
	if err.Status() != http.StatusConflict {
		t.Fatalf("unexpected status: %d", err.Status())
	}
	if err.Severity() != SeverityWarning {
		t.Fatalf("unexpected severity: %s", err.Severity())
	}
}

func TestUnknownErrorsFallBack(t *testing.T) {
	plain := stdErrors.New("boom")
	if CodeOf(plain) != CodeUnknown {
		t.Fatalf("plain errors must map to UNKNOWN")
	}
	if StatusOf(plain) != http.StatusInternalServerError {
		t.Fatalf("plain errors must map to 500")
	}
	if AttributesOf("NOT_REGISTERED").Message != "unknown error" {
		t.Fatalf("unregistered codes must fall back to UNKNOWN attributes")
	}
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(CodeInvalidArgument, "bad form", WithMetadata("email", "Valid email is required"))
	meta := err.Metadata()
	meta["email"] = "mutated"
	if err.Metadata()["email"] != "Valid email is required" {
		t.Fatalf("metadata must be returned as a copy")
	}
}
