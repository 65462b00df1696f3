package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns != 10 || c.MaxIdleConns != 10 {
		t.Fatalf("unexpected pool sizes: %+v", c)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", c.PingTimeout)
	}
}

func TestPostgresPoolConfig_KeepsExplicitValues(t *testing.T) {
	c := PostgresPoolConfig{MaxOpenConns: 3, MaxIdleConns: 2, PingTimeout: time.Second}.withDefaults()
	if c.MaxOpenConns != 3 || c.MaxIdleConns != 2 || c.PingTimeout != time.Second {
		t.Fatalf("explicit values overridden: %+v", c)
	}
}
