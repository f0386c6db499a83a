package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLoadConfigDefaults(t *testing.T) {
	c := qt.New(t)
	t.Setenv("PORT", "")
	t.Setenv("STALENESS_HARD_CUTOFF", "")

	cfg, err := LoadConfig()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Port, qt.Equals, "8080")
	c.Assert(cfg.StorageMode, qt.Equals, StorageMemory)
	c.Assert(cfg.PushTransport, qt.Equals, PushNone)
	c.Assert(cfg.LiveThreshold, qt.Equals, 2*time.Minute)
	c.Assert(cfg.RecentThreshold, qt.Equals, 10*time.Minute)
	c.Assert(cfg.HardStaleCutoff, qt.Equals, 30*time.Minute)
	c.Assert(cfg.ETAMinBand, qt.Equals, 2*time.Minute)
	c.Assert(cfg.SuppressRescans, qt.IsTrue)
	c.Assert(cfg.AnomalyPolicy, qt.Equals, "reject")
}

func TestLoadConfigOverrides(t *testing.T) {
	c := qt.New(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_MODE", "Persistent")
	t.Setenv("STALENESS_HARD_CUTOFF", "45m")
	t.Setenv("DELIVERY_SWEEP_INTERVAL", "10")
	t.Setenv("SUPPRESS_RESCANS", "false")
	t.Setenv("DELIVERY_WORKERS", "not-a-number")

	cfg, err := LoadConfig()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Port, qt.Equals, "9090")
	c.Assert(cfg.StorageMode, qt.Equals, StoragePersistent)
	c.Assert(cfg.HardStaleCutoff, qt.Equals, 45*time.Minute)
	c.Assert(cfg.DeliverySweepInterval, qt.Equals, 10*time.Second)
	c.Assert(cfg.SuppressRescans, qt.IsFalse)
	c.Assert(cfg.DeliveryWorkers, qt.Equals, 4)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	c := qt.New(t)

	t.Setenv("PUSH_TRANSPORT", "carrier-pigeon")
	_, err := LoadConfig()
	c.Assert(err, qt.ErrorMatches, `unknown PUSH_TRANSPORT "carrier-pigeon"`)

	t.Setenv("PUSH_TRANSPORT", "webhook")
	t.Setenv("PUSH_WEBHOOK_URL", "")
	_, err = LoadConfig()
	c.Assert(err, qt.ErrorMatches, "PUSH_WEBHOOK_URL is required.*")

	t.Setenv("PUSH_TRANSPORT", "none")
	t.Setenv("STALENESS_RECENT", "1m")
	_, err = LoadConfig()
	c.Assert(err, qt.ErrorMatches, "staleness thresholds must increase.*")
}
