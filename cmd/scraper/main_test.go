package main

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	err    error
	called bool
}

func (f *fakeTx) Rollback(context.Context) error {
	f.called = true
	return f.err
}

func TestRollback(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"open transaction", nil, false},
		{"already committed", pgx.ErrTxClosed, false},
		{"connection lost", errors.New("conn closed"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &fakeTx{err: tt.err}
			err := rollback(tx)
			if !tx.called {
				t.Error("Expected Rollback to be called")
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("rollback() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
