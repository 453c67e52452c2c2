package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"xmllibrary/internal/adapters/persistence/xmlstore"

	"github.com/robfig/cron/v3"
)

// Schedules of the housekeeping jobs
const (
	CacheSweepSchedule   = "@every 5m"
	TokenCleanupSchedule = "@daily"
)

// jobTimeout bounds a single job run
const jobTimeout = time.Minute

// CronService runs the scheduled maintenance jobs
type CronService struct {
	cron        *cron.Cron
	borrowings  *BorrowingService
	auth        *AuthService
	notifier    *NotificationService
	cache       *xmlstore.Cache
	overdueSpec string
}

// NewCronService creates the scheduler. overdueSpec is a standard
// five-field cron expression for the overdue sweep. notifier may be nil.
func NewCronService(
	borrowings *BorrowingService,
	auth *AuthService,
	notifier *NotificationService,
	cache *xmlstore.Cache,
	overdueSpec string,
) *CronService {
	logger := cron.PrintfLogger(log.Default())
	return &CronService{
		cron:        cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		borrowings:  borrowings,
		auth:        auth,
		notifier:    notifier,
		cache:       cache,
		overdueSpec: overdueSpec,
	}
}

// Start registers every job and starts the scheduler
func (s *CronService) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"overdue sweep", s.overdueSpec, s.SweepOverdue},
		{"cache sweep", CacheSweepSchedule, s.SweepCache},
		{"token cleanup", TokenCleanupSchedule, s.CleanupTokens},
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
	}

	s.cron.Start()
	log.Printf("🚀 CronService started [overdue: %s]", s.overdueSpec)
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// SweepOverdue marks loans past their due date
func (s *CronService) SweepOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.borrowings.MarkOverdue(ctx)
	if err != nil {
		log.Printf("❌ Overdue sweep failed: %v", err)
		return
	}
	log.Printf("✅ Overdue sweep done: %d marked", n)

	if n == 0 || !s.notifier.IsEnabled() {
		return
	}
	loans, err := s.borrowings.Overdue(ctx)
	if err != nil {
		log.Printf("❌ Overdue notice skipped: %v", err)
		return
	}
	if err := s.notifier.NotifyOverdue(ctx, loans); err != nil {
		log.Printf("⚠️ Overdue notice failed: %v", err)
	}
}

// SweepCache drops expired document cache entries
func (s *CronService) SweepCache() {
	if n := s.cache.Sweep(); n > 0 {
		log.Printf("✅ Cache sweep: %d expired entries dropped", n)
	}
}

// CleanupTokens removes expired refresh tokens
func (s *CronService) CleanupTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.auth.CleanupExpiredTokens(ctx)
	if err != nil {
		log.Printf("❌ Token cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("✅ Token cleanup: %d expired tokens removed", n)
	}
}
