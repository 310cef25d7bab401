package monitoring

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avren/tasklist-be/internal/services"
)

// Janitor prunes old activity events on a cron schedule.
type Janitor struct {
	eventSvc  services.EventServiceProvider
	schedule  cron.Schedule
	retention time.Duration
	ticker    *time.Ticker
	done      chan bool
}

// NewJanitor creates a janitor from a standard cron expression and a
// retention window in days.
func NewJanitor(eventSvc services.EventServiceProvider, cronExpr string, retentionDays int) (*Janitor, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Janitor{
		eventSvc:  eventSvc,
		schedule:  schedule,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		done:      make(chan bool),
	}, nil
}

// Run starts the janitor's ticking loop. It wakes once a minute and
// prunes when the cron schedule's next fire time has passed.
func (j *Janitor) Run() {
	log.Println("Starting event retention janitor...")
	j.ticker = time.NewTicker(1 * time.Minute)
	defer j.ticker.Stop()

	nextRun := j.schedule.Next(time.Now())

	for {
		select {
		case <-j.done:
			log.Println("Stopping event retention janitor.")
			return
		case <-j.ticker.C:
			now := time.Now()
			if now.After(nextRun) {
				j.prune(now)
				nextRun = j.schedule.Next(now)
			}
		}
	}
}

// Stop halts the janitor.
func (j *Janitor) Stop() {
	j.done <- true
}

func (j *Janitor) prune(now time.Time) {
	cutoff := now.Add(-j.retention)
	removed, err := j.eventSvc.PruneOlderThan(cutoff)
	if err != nil {
		log.Printf("Janitor: failed to prune events: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Janitor: pruned %d events older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
