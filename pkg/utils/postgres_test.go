package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresPoolDefaults(t *testing.T) {
	pool := PostgresPoolConfig{MaxOpenConns: 10}.withDefaults()
	if pool.MaxOpenConns != 10 {
		t.Fatalf("explicit max open conns overwritten: %d", pool.MaxOpenConns)
	}
	if pool.MaxIdleConns != 10 || pool.ConnMaxLifetime != 30*time.Minute || pool.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", pool)
	}

	pool = PostgresPoolConfig{}.withDefaults()
	if pool.MaxOpenConns != 20 || pool.MaxIdleConns != 20 {
		t.Fatalf("unexpected zero-value defaults: %+v", pool)
	}
}

func TestPostgresPoolClampsIdleToOpen(t *testing.T) {
	pool := PostgresPoolConfig{MaxOpenConns: 4, MaxIdleConns: 50}.withDefaults()
	if pool.MaxIdleConns != 4 {
		t.Fatalf("expected idle clamped to 4, got %d", pool.MaxIdleConns)
	}
}

func TestOpenPostgresUnknownDriver(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "no-such-driver", "postgres://x", PostgresPoolConfig{}); err == nil {
		t.Fatalf("expected error for unregistered driver")
	}
}

func TestIsRetryableTxError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("connection reset"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsRetryableTxError(tc.err); got != tc.want {
			t.Fatalf("IsRetryableTxError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
