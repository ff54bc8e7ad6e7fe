package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeDuplicateSKU, status: http.StatusConflict, publicMsg: "a product with this sku already exists", detailsOK: true},
		{code: CodeDuplicateName, status: http.StatusConflict, publicMsg: "a product with this name already exists", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeNotificationFailed, status: http.StatusServiceUnavailable, publicMsg: "failed to publish inventory update event", retryable: true},
		{code: CodePersistenceFailed, status: http.StatusInternalServerError, publicMsg: "failed to persist inventory update"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing sku")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing sku" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "sku"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodePersistenceFailed, cause, "commit")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodePersistenceFailed {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeNotFound, "product not found")
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("adjust: %w", New(CodeInsufficientStock, "insufficient stock"))
	if !IsCode(err, CodeInsufficientStock) {
		t.Fatalf("expected IsCode to find insufficient stock")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("IsCode matched the wrong code")
	}
	if IsCode(nil, CodeNotFound) {
		t.Fatalf("IsCode(nil) should be false")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key", TableName: "products", Message: "duplicate key value"}
	err := Wrap(CodeDuplicateSKU, pgErr, "insert product")

	d := Dump(err)
	if d.Code != CodeDuplicateSKU {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if d.Postgres == nil || d.Postgres.Code != "23505" || d.Postgres.Constraint != "products_sku_key" || d.Postgres.Table != "products" {
		t.Fatalf("unexpected pg fields %+v", d.Postgres)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
	fields := d.Fields()
	if fields["pg_constraint"] != "products_sku_key" || fields["error_code"] != CodeDuplicateSKU {
		t.Fatalf("unexpected log fields %v", fields)
	}
}

func TestDumpWithoutPostgresError(t *testing.T) {
	d := Dump(New(CodeNotFound, "product not found"))
	if d.Postgres != nil {
		t.Fatalf("expected no postgres fields, got %+v", d.Postgres)
	}
	fields := d.Fields()
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("pg_code should be omitted: %v", fields)
	}
	if _, ok := fields["error_chain"]; ok {
		t.Fatalf("single-link chains are omitted: %v", fields)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil error should produce an empty dump")
	}
}

func TestIsCodeWalksNestedErrors(t *testing.T) {
	inner := New(CodeInsufficientStock, "stock would go negative")
	outer := Wrap(CodePersistenceFailed, fmt.Errorf("adjust: %w", inner), "commit failed")
	if !IsCode(outer, CodeInsufficientStock) || !IsCode(outer, CodePersistenceFailed) {
		t.Fatal("expected both codes to be found in the chain")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatal("unexpected match")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeNotificationFailed, "broker down")) {
		t.Fatal("notification failures are retryable")
	}
	if IsRetryable(New(CodeInsufficientStock, "no stock")) {
		t.Fatal("insufficient stock is final")
	}
	if !IsRetryable(stdErrors.New("plain")) || IsRetryable(nil) {
		t.Fatal("unexpected retryable result for uncoded errors")
	}
}
