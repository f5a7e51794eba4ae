// Package sweeper purges short URLs that are expired, exhausted or
// deactivated, together with their click events.
package sweeper

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"urlalias/pkg/urlalias/models"
)

const stalePredicate = "expires_at <= ? OR clicks_left = 0 OR is_active = ?"

// Sweeper runs the retention sweep on a fixed interval. It is owned by the
// process lifecycle: the caller starts and stops it explicitly.
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	log      zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// New creates a sweeper. interval must be positive.
func New(db *gorm.DB, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{db: db, interval: interval, log: log}
}

// Start launches the background sweep loop
func (s *Sweeper) Start() {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()
	s.log.Info().Dur("interval", s.interval).Msg("retention sweeper started")
}

// Stop halts the sweep loop and waits for an in-flight run to finish
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A failed run is logged and dropped; the predicate is
			// re-evaluated from scratch on the next tick.
			deleted, err := s.SweepOnce(time.Now().UTC())
			if err != nil {
				s.log.Error().Err(err).Msg("retention sweep failed")
				continue
			}
			s.log.Info().Int64("deleted", deleted).Msg("retention sweep completed")
		case <-s.stop:
			return
		}
	}
}

// SweepOnce deletes every short URL that is expired, out of clicks or
// deactivated as of now, cascading to its click events. Idempotent: rows
// missed by a crashed run still qualify on the next one.
func (s *Sweeper) SweepOnce(now time.Time) (int64, error) {
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.ShortURL{}).
			Select("id").
			Where(stalePredicate, now.Unix(), false)

		if err := tx.Where("short_url_id IN (?)", stale).
			Delete(&models.ClickEvent{}).Error; err != nil {
			return err
		}

		res := tx.Where(stalePredicate, now.Unix(), false).
			Delete(&models.ShortURL{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
