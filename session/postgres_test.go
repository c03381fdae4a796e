package session

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"github.com/MelnikovEI/fish-shop/shop"
)

func TestMain(m *testing.M) {
	logger.InitLogger(nil)
	m.Run()
}

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresGet(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT state FROM sessions WHERE user_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FILLING_CART"))

	st, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st != shop.StateFillingCart {
		t.Fatalf("state = %s, expected FILLING_CART", st)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresGetUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT state FROM sessions WHERE user_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	st, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st != shop.StateChoosing {
		t.Fatalf("state = %s, expected CHOOSING for a new user", st)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresSetState(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(int64(42), "HANDLING_CART").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SetState(context.Background(), 42, shop.StateHandlingCart); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
