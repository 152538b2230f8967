package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/freshflower-auth/internal/domain/entity"
	"github.com/oksasatya/freshflower-auth/internal/domain/repository"
)

// fakeRow scans values into dest in order, or fails with err.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeDB struct {
	row     fakeRow
	pingErr error

	sql  string
	args []any
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql = sql
	f.args = args
	return f.row
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func TestCreate_FillsGeneratedColumns(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{"0b9c2c1e-6d53-4c3e-9a55-0f0e3f4b1a11", now, now}}}
	r := NewUserRepository(db)

	u := &entity.User{Email: "a@example.com", Password: "$2a$hash", FullName: "A"}
	require.NoError(t, r.Create(context.Background(), u))
	assert.Equal(t, "0b9c2c1e-6d53-4c3e-9a55-0f0e3f4b1a11", u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)

	assert.True(t, strings.Contains(db.sql, "INSERT INTO users"))
	assert.Equal(t, []any{"a@example.com", "$2a$hash", "A"}, db.args)
}

func TestCreate_UniqueViolation(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}}}
	err := NewUserRepository(db).Create(context.Background(), &entity.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestCreate_OtherError(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: &pgconn.PgError{Code: "08006"}}}
	err := NewUserRepository(db).Create(context.Background(), &entity.User{Email: "a@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "insert user")
}

func TestGetByEmail(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{row: fakeRow{values: []any{"id-1", "a@example.com", "$2a$hash", "A", now, now}}}

	u, err := NewUserRepository(db).GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, &entity.User{
		ID: "id-1", Email: "a@example.com", Password: "$2a$hash", FullName: "A",
		CreatedAt: now, UpdatedAt: now,
	}, u)
	assert.Equal(t, []any{"a@example.com"}, db.args)
}

func TestGetByEmail_NoRows(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	_, err := NewUserRepository(db).GetByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByEmail_Wrapped(t *testing.T) {
	boom := errors.New("boom")
	db := &fakeDB{row: fakeRow{err: boom}}
	_, err := NewUserRepository(db).GetByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestExistsByEmail(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{true}}}
	ok, err := NewUserRepository(db).ExistsByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, db.sql, "SELECT EXISTS")
}

func TestPing(t *testing.T) {
	db := &fakeDB{pingErr: errors.New("down")}
	assert.EqualError(t, NewUserRepository(db).Ping(context.Background()), "down")
}
