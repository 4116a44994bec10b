package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	if !IsUniqueViolation(dup) {
		t.Error("23505 应识别为唯一约束冲突")
	}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", dup)) {
		t.Error("包装后的 23505 应识别为唯一约束冲突")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("外键冲突不应识别为唯一约束冲突")
	}
	if IsUniqueViolation(errors.New("duplicate key")) {
		t.Error("非 PgError 不应识别为唯一约束冲突")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil 不应识别为唯一约束冲突")
	}
}
