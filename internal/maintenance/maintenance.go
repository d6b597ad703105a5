// Package maintenance runs periodic housekeeping against attached
// devices: a cron-scheduled, harmless GET probe that detects a
// silently-dead transport between client-issued command lines.
package maintenance

import (
	"log"

	"github.com/robfig/cron/v3"

	"ckbcored/internal/daemon"
)

// Scheduler owns the cron ticker driving the heartbeat probes.
type Scheduler struct {
	cron    *cron.Cron
	targets map[string]*daemon.Handle
}

// New creates a Scheduler with no probes registered yet.
func New() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		targets: make(map[string]*daemon.Handle),
	}
}

// Start begins the cron ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[Maintenance] heartbeat scheduler started.")
}

// Stop halts the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Maintenance] heartbeat scheduler stopped.")
}

// Probe registers a recurring GET heartbeat for h on the given cron
// spec (e.g. "@every 30s"). The probe line is deliberately a GET with
// an opaque "heartbeat" word: GET is always-available, so the probe
// still runs against an idle device (a device that needs a firmware
// update drops it at the gate). The GET result itself is not checked;
// a dead transport surfaces through the retry-with-reset around the
// post-line flush that the probe line triggers.
func (s *Scheduler) Probe(h *daemon.Handle, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		h.Send("@0 get heartbeat")
	})
	if err != nil {
		return err
	}
	s.targets[h.Device.Name] = h
	return nil
}
