package postgres

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsBindParameterMismatch(t *testing.T) {
	t.Run("matches bind mismatch error", func(t *testing.T) {
		err := fakeErr("pq: bind message supplies 2 parameters, but prepared statement \"\" requires 1 (08P01)")
		if !isBindParameterMismatch(err) {
			t.Fatalf("expected true for bind mismatch error")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		err := fakeErr("pq: relation wagers does not exist")
		if isBindParameterMismatch(err) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestIsUnnamedPreparedStatementMissing(t *testing.T) {
	t.Run("matches statement missing message", func(t *testing.T) {
		err := fakeErr("pq: unnamed prepared statement does not exist (26000)")
		if !isUnnamedPreparedStatementMissing(err) {
			t.Fatalf("expected true for statement missing error")
		}
	})

	t.Run("matches pq error code", func(t *testing.T) {
		err := fmt.Errorf("get match: %w", &pq.Error{Code: "26000", Message: "prepared statement missing"})
		if !isUnnamedPreparedStatementMissing(err) {
			t.Fatalf("expected true for 26000 pq error")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		err := fakeErr("pq: relation wagers does not exist")
		if isUnnamedPreparedStatementMissing(err) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestConstraintViolations(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	check := fmt.Errorf("update: %w", &pq.Error{Code: "23514"})
	if !isUniqueViolation(unique) || isUniqueViolation(check) {
		t.Fatalf("unexpected unique violation classification")
	}
	if !isCheckViolation(check) || isCheckViolation(unique) {
		t.Fatalf("unexpected check violation classification")
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
