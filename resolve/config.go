package resolve

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kukkik42/Paket/workqueue"
)

// Config is the environment-derived ambient configuration of spec.md §6:
// read once, at Resolve's entry, never re-read mid-search.
type Config struct {
	Workers     int
	TaskTimeout time.Duration
}

// LoadConfig reads PAKET_RESOLVER_WORKERS and PAKET_RESOLVER_TASK_TIMEOUT
// from the environment, warning and falling back to their defaults on any
// invalid value.
func LoadConfig(log *logrus.Logger) Config {
	if log == nil {
		log = logrus.New()
	}
	cfg := Config{Workers: workqueue.DefaultWorkers, TaskTimeout: workqueue.DefaultTaskTimeout}

	if raw := os.Getenv("PAKET_RESOLVER_WORKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.Workers = n
		} else {
			log.WithField("value", raw).Warn("invalid PAKET_RESOLVER_WORKERS, using default")
		}
	}

	if raw := os.Getenv("PAKET_RESOLVER_TASK_TIMEOUT"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			cfg.TaskTimeout = time.Duration(ms) * time.Millisecond
		} else {
			log.WithField("value", raw).Warn("invalid PAKET_RESOLVER_TASK_TIMEOUT, using default")
		}
	}

	return cfg
}
