package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aq2208/gorder-bridge/internal/usecase"
)

func TestMySQLInboxRepo_Forward(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO inbox").
		WithArgs("m-1", "order.cancelled", "text/plain", "bye", false, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewMySQLInboxRepo(db)
	err = r.Forward(context.Background(), usecase.Envelope{
		ID: "m-1", RoutingKey: "order.cancelled", ContentType: "text/plain", Body: "bye", ReceivedAt: at,
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMySQLInboxRepo_ForwardError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("deadlock")
	mock.ExpectExec("INSERT INTO inbox").WillReturnError(boom)

	r := NewMySQLInboxRepo(db)
	if err := r.Forward(context.Background(), usecase.Envelope{ID: "m-2"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
