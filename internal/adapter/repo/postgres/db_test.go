package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/vericv/internal/domain"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	wrapped := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, ConstraintName: "cvs_pkey"})
	}

	assert.ErrorIs(t, classify(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, classify(wrapped(pgUniqueViolation)), domain.ErrConflict)
	assert.Contains(t, classify(wrapped(pgUniqueViolation)).Error(), "cvs_pkey")
	assert.ErrorIs(t, classify(wrapped(pgForeignKeyViolation)), domain.ErrNotFound)
	assert.ErrorIs(t, classify(wrapped(pgInvalidText)), domain.ErrInvalidArgument)

	other := wrapped("53300")
	assert.Same(t, other, classify(other))
	plain := errors.New("conn reset")
	assert.Same(t, plain, classify(plain))
}

func TestValidID(t *testing.T) {
	t.Parallel()
	assert.True(t, validID("3f8a2c1e-5b7d-4e9f-a0b1-c2d3e4f5a6b7"))
	assert.False(t, validID("cv-1"))
	assert.False(t, validID(""))
}
