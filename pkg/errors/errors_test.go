package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{CodeStageOrder, http.StatusUnprocessableEntity, false},
		{CodeAlreadyDone, http.StatusConflict, false},
		{CodeReleased, http.StatusConflict, false},
		{CodeDeclined, http.StatusPaymentRequired, false},
		{CodePayoutMissing, http.StatusPreconditionFailed, true},
		{CodePartialCommit, http.StatusInternalServerError, true},
		{CodeDependency, http.StatusServiceUnavailable, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			meta := MetadataFor(tc.code)
			if meta.HTTPStatus != tc.status {
				t.Fatalf("status for %s: got %d want %d", tc.code, meta.HTTPStatus, tc.status)
			}
			if meta.Retryable != tc.retryable {
				t.Fatalf("retryable for %s: got %v want %v", tc.code, meta.Retryable, tc.retryable)
			}
		})
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeDependency, cause, "call processor")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != fmt.Sprintf("%s: call processor", CodeDependency) {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsThroughWrappedChain(t *testing.T) {
	inner := New(CodeReleased, "funds already transferred")
	outer := fmt.Errorf("settle order: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error from chain")
	}
	if typed.Code() != CodeReleased {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if !Is(outer, CodeReleased) {
		t.Fatal("Is should match the code through the chain")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint \"ux_milestones_order_stage\"")
	err := Wrap(CodeAlreadyDone, cause, "insert milestone")

	dump := Dump(err)
	if dump.Code != CodeAlreadyDone {
		t.Fatalf("unexpected dump code %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
