package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Backupper uploads one datastore snapshot.
type Backupper interface {
	Backup(ctx context.Context) (string, error)
}

// BackupWorker runs datastore backups on a cron schedule.
type BackupWorker struct {
	backup   Backupper
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// NewBackupWorker constructs a BackupWorker. schedule is a standard five-field
// cron expression evaluated in loc.
func NewBackupWorker(backup Backupper, schedule string, loc *time.Location) (*BackupWorker, error) {
	if loc == nil {
		loc = time.UTC
	}
	w := &BackupWorker{
		backup:   backup,
		schedule: schedule,
		timeout:  5 * time.Minute,
		cron:     cron.New(cron.WithLocation(loc)),
	}
	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start runs the scheduler until ctx is canceled, then waits for a running
// backup to finish.
func (w *BackupWorker) Start(ctx context.Context) {
	log.Info().Str("schedule", w.schedule).Msg("Starting backup worker")
	w.cron.Start()

	<-ctx.Done()
	<-w.cron.Stop().Done()
	log.Info().Msg("Backup worker stopped")
}

func (w *BackupWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	key, err := w.backup.Backup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled datastore backup failed")
		return
	}
	log.Info().Str("key", key).Dur("duration", time.Since(start)).Msg("Scheduled datastore backup finished")
}
