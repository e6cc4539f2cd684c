package payments

import (
	"testing"

	pkgerrors "github.com/craftworkhq/settlement-backend/pkg/errors"
)

func TestVerifyCapturedAmount(t *testing.T) {
	if err := verifyCapturedAmount(&ProcessorResult{AmountCents: 5000}, 5000); err != nil {
		t.Fatalf("matching amounts: %v", err)
	}

	err := verifyCapturedAmount(&ProcessorResult{AmountCents: 1000}, 5000)
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("err = %v, want dependency failure on amount mismatch", err)
	}

	if err := verifyCapturedAmount(nil, 5000); err == nil {
		t.Fatal("nil result must not pass amount verification")
	}
}
