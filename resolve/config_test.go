package resolve

import (
	"testing"
	"time"

	"github.com/Kukkik42/Paket/workqueue"
)

func TestLoadConfigDefaultsWhenUnset(t *testing.T) {
	t.Setenv("PAKET_RESOLVER_WORKERS", "")
	t.Setenv("PAKET_RESOLVER_TASK_TIMEOUT", "")

	cfg := LoadConfig(nil)
	if cfg.Workers != workqueue.DefaultWorkers {
		t.Fatalf("expected default worker count %d, got %d", workqueue.DefaultWorkers, cfg.Workers)
	}
	if cfg.TaskTimeout != workqueue.DefaultTaskTimeout {
		t.Fatalf("expected default task timeout %v, got %v", workqueue.DefaultTaskTimeout, cfg.TaskTimeout)
	}
}

func TestLoadConfigHonoursValidOverrides(t *testing.T) {
	t.Setenv("PAKET_RESOLVER_WORKERS", "3")
	t.Setenv("PAKET_RESOLVER_TASK_TIMEOUT", "250")

	cfg := LoadConfig(nil)
	if cfg.Workers != 3 {
		t.Fatalf("expected overridden worker count 3, got %d", cfg.Workers)
	}
	if cfg.TaskTimeout != 250*time.Millisecond {
		t.Fatalf("expected overridden task timeout 250ms, got %v", cfg.TaskTimeout)
	}
}

func TestLoadConfigFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("PAKET_RESOLVER_WORKERS", "not-a-number")
	t.Setenv("PAKET_RESOLVER_TASK_TIMEOUT", "-5")

	cfg := LoadConfig(nil)
	if cfg.Workers != workqueue.DefaultWorkers {
		t.Fatalf("expected fallback to default worker count on invalid input, got %d", cfg.Workers)
	}
	if cfg.TaskTimeout != workqueue.DefaultTaskTimeout {
		t.Fatalf("expected fallback to default task timeout on negative input, got %v", cfg.TaskTimeout)
	}
}
