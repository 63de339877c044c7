package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorCode_Status(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeValidation:   http.StatusBadRequest,
		ErrorCodeJSON:         http.StatusBadRequest,
		ErrorCodeUnauthorized: http.StatusUnauthorized,
		ErrorCodeForbidden:    http.StatusForbidden,
		ErrorCodeNotFound:     http.StatusNotFound,
		ErrorCodeState:        http.StatusConflict,
		ErrorCodeDuplicateKey: http.StatusConflict,
		ErrorCodeContention:   http.StatusServiceUnavailable,
		ErrorCodeUnavailable:  http.StatusServiceUnavailable,
		ErrorCodeInvariant:    http.StatusInternalServerError,
		ErrorCodeDB:           http.StatusInternalServerError,
		ErrorCodePanic:        http.StatusInternalServerError,
		ErrorCodeUnknown:      http.StatusInternalServerError,
		ErrorCode("MADE_UP"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.Status(); got != want {
			t.Fatalf("%s -> %d, want %d", code, got, want)
		}
	}
}

func TestError_WrapRenderAndField(t *testing.T) {
	cause := stderrs.New("conn reset")
	err := Wrap(cause, ErrorCodeDB, "load work")
	if err.Error() != "load work: conn reset" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("cause lost")
	}

	withField := WithField(Validationf("bad phase %q", "X"), "phase")
	e, ok := As(fmt.Errorf("submit: %w", withField))
	if !ok || e.Field() != "phase" || e.Code() != ErrorCodeValidation {
		t.Fatalf("As through fmt wrap = %+v %v", e, ok)
	}
	if WithField(cause, "x") != cause {
		t.Fatalf("foreign errors must pass through WithField")
	}

	base := Statef("locked")
	_ = WithField(base, "decision")
	if b, _ := As(base); b.Field() != "" {
		t.Fatalf("WithField mutated its input")
	}
}

func TestWireFrom(t *testing.T) {
	if WireFrom(nil) != (Wire{}) {
		t.Fatalf("nil should render empty")
	}
	w := WireFrom(Wrap(stderrs.New("secret detail"), ErrorCodeForbidden, "not a member"))
	if w.Code != ErrorCodeForbidden || w.Message != "not a member" {
		t.Fatalf("wire = %+v", w)
	}
	w = WireFrom(stderrs.New("boom"))
	if w.Code != ErrorCodeUnknown || w.Message != "boom" {
		t.Fatalf("foreign wire = %+v", w)
	}
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{NotFoundf("w"), ErrorCodeNotFound},
		{DuplicateKeyf("w"), ErrorCodeDuplicateKey},
		{JSONErrf("w"), ErrorCodeJSON},
		{PanicErrf("w"), ErrorCodePanic},
		{Unauthorizedf("w"), ErrorCodeUnauthorized},
		{Forbiddenf("w"), ErrorCodeForbidden},
		{Validationf("w"), ErrorCodeValidation},
		{Statef("w"), ErrorCodeState},
		{Contentionf("w"), ErrorCodeContention},
		{Invariantf("w"), ErrorCodeInvariant},
		{ErrNotFound, ErrorCodeNotFound},
	}
	for _, c := range cases {
		if !IsCode(c.err, c.code) {
			t.Fatalf("%v has code %s, want %s", c.err, CodeOf(c.err), c.code)
		}
	}
	if !IsInvariant(Invariantf("two outcomes")) || IsInvariant(Statef("x")) {
		t.Fatalf("IsInvariant mismatch")
	}
}

func TestFromPostgres(t *testing.T) {
	cases := []struct {
		sqlstate string
		want     ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23503", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22P02", ErrorCodeValidation},
		{"40001", ErrorCodeContention},
		{"40P01", ErrorCodeContention},
		{"55P03", ErrorCodeContention},
		{"57P03", ErrorCodeUnavailable},
		{"42P01", ErrorCodeDB},
	}
	for _, c := range cases {
		err := FromPostgres(fmt.Errorf("exec: %w", &pgconn.PgError{Code: c.sqlstate}), "insert decision")
		if got := CodeOf(err); got != c.want {
			t.Fatalf("%s -> %s, want %s", c.sqlstate, got, c.want)
		}
	}

	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil must stay nil")
	}
	if got := CodeOf(FromPostgres(stderrs.New("closed pool"), "x")); got != ErrorCodeDB {
		t.Fatalf("plain error -> %s", got)
	}
	if got := CodeOf(FromPostgres(NotFoundf("work"), "x")); got != ErrorCodeNotFound {
		t.Fatalf("coded error lost its code: %s", got)
	}
	if !IsDuplicateKey(FromPostgres(&pgconn.PgError{Code: "23505"}, "x")) {
		t.Fatalf("IsDuplicateKey should see through the wrap")
	}
}

func TestRetryable(t *testing.T) {
	yes := []error{
		Contentionf("busy"),
		&pgconn.PgError{Code: "40001"},
		&pgconn.PgError{Code: "55P03"},
		FromPostgres(&pgconn.PgError{Code: "40P01"}, "commit"),
		stderrs.New("commit unexpectedly resulted in rollback"),
	}
	for _, err := range yes {
		if !Retryable(err) {
			t.Fatalf("%v should be retryable", err)
		}
	}
	no := []error{
		nil,
		Statef("locked"),
		&pgconn.PgError{Code: "23505"},
		context.DeadlineExceeded,
		fmt.Errorf("lease: %w", context.Canceled),
		stderrs.New("nope"),
	}
	for _, err := range no {
		if Retryable(err) {
			t.Fatalf("%v should not be retryable", err)
		}
	}
}
