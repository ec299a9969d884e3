package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
	"linecs/internal/infrastructure"
	"linecs/internal/interfaces"
)

// DigestStore is the slice of the digest repository the job needs.
type DigestStore interface {
	Insert(ctx context.Context, report *entities.DigestReport) (bool, error)
	GetByKey(ctx context.Context, windowKey string) (*entities.DigestReport, error)
	List(ctx context.Context, limit int) ([]entities.DigestReport, error)
}

// TicketWindowStats aggregates ticket activity for a digest window.
type TicketWindowStats interface {
	WindowStats(ctx context.Context, start, end time.Time) (escalated, pending int, err error)
}

// ConversationWindowStats counts conversation activity for a digest window.
type ConversationWindowStats interface {
	CountInWindow(ctx context.Context, start, end time.Time) (conversations, messages int, err error)
}

// DigestService generates the daily activity summary and pushes it to the
// configured recipients. A window is identified by its date; the database
// unique key makes repeated runs for the same window no-ops.
type DigestService struct {
	digests       DigestStore
	tickets       TicketWindowStats
	conversations ConversationWindowStats
	messenger     interfaces.Messenger
	notifier      interfaces.Notifier
	recipients    []string
	location      *time.Location
	hour, minute  int
	metrics       *infrastructure.Metrics
	logger        *logrus.Logger

	mu sync.Mutex // guards against overlapping runs on one instance
}

func NewDigestService(
	digests DigestStore,
	tickets TicketWindowStats,
	conversations ConversationWindowStats,
	messenger interfaces.Messenger,
	notifier interfaces.Notifier,
	recipients []string,
	location *time.Location,
	hour, minute int,
	metrics *infrastructure.Metrics,
	logger *logrus.Logger,
) *DigestService {
	if location == nil {
		location = time.UTC
	}
	return &DigestService{
		digests:       digests,
		tickets:       tickets,
		conversations: conversations,
		messenger:     messenger,
		notifier:      notifier,
		recipients:    recipients,
		location:      location,
		hour:          hour,
		minute:        minute,
		metrics:       metrics,
		logger:        logger,
	}
}

// Start launches the scheduler goroutine. It fires once per day at the
// configured local time until ctx is cancelled.
func (s *DigestService) Start(ctx context.Context) {
	go func() {
		for {
			next := s.nextFire(time.Now().In(s.location))
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case now := <-timer.C:
				if _, _, err := s.Run(ctx, now); err != nil {
					s.logger.WithError(err).Error("digest run failed")
				}
			}
		}
	}()
}

func (s *DigestService) nextFire(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run reports every unreported day up to yesterday and pushes the
// summaries. After downtime it resumes from the last stored window so
// the reports stay contiguous and no day goes missing. Returns the last
// window's report; pushed=false when that window was already reported.
// Concurrent runs on one instance are serialized; across instances the
// window key in the database is the guard.
func (s *DigestService) Run(ctx context.Context, now time.Time) (*entities.DigestReport, bool, error) {
	if !s.mu.TryLock() {
		s.logger.Warn("digest run already in progress, skipping")
		return nil, false, nil
	}
	defer s.mu.Unlock()

	today := s.dayStart(now)
	start := today.AddDate(0, 0, -1)
	if latest, err := s.digests.List(ctx, 1); err == nil && len(latest) > 0 {
		if resume := s.dayStart(latest[0].WindowEnd); resume.Before(start) {
			s.logger.WithFields(logrus.Fields{
				"resume_from": resume.Format("2006-01-02"),
				"days_behind": int(start.Sub(resume).Hours() / 24),
			}).Info("catching up missed digest windows")
			start = resume
		}
	}

	var (
		report *entities.DigestReport
		pushed bool
	)
	for windowStart := start; windowStart.Before(today); windowStart = windowStart.AddDate(0, 0, 1) {
		r, p, err := s.runWindow(ctx, windowStart, windowStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, false, err
		}
		report, pushed = r, p
	}
	return report, pushed, nil
}

func (s *DigestService) runWindow(ctx context.Context, windowStart, windowEnd time.Time) (*entities.DigestReport, bool, error) {
	report := &entities.DigestReport{
		WindowKey:   windowStart.Format("2006-01-02"),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	var err error
	report.Conversations, report.Messages, err = s.conversations.CountInWindow(ctx, windowStart, windowEnd)
	if err != nil {
		s.metrics.DigestRuns.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("count conversations: %w", err)
	}
	report.Escalated, report.Pending, err = s.tickets.WindowStats(ctx, windowStart, windowEnd)
	if err != nil {
		s.metrics.DigestRuns.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("ticket window stats: %w", err)
	}
	report.AutoResolved = report.Conversations - report.Escalated
	if report.AutoResolved < 0 {
		report.AutoResolved = 0
	}
	report.Body = formatDigest(report)

	created, err := s.digests.Insert(ctx, report)
	if err != nil {
		s.metrics.DigestRuns.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("store digest report: %w", err)
	}
	if !created {
		s.logger.WithField("window_key", report.WindowKey).Info("digest window already reported, no push")
		s.metrics.DigestRuns.WithLabelValues("skipped").Inc()
		// Return the stored report, not the freshly aggregated one.
		if existing, err := s.digests.GetByKey(ctx, report.WindowKey); err == nil && existing != nil {
			report = existing
		}
		return report, false, nil
	}

	s.push(ctx, report)
	s.metrics.DigestRuns.WithLabelValues("pushed").Inc()
	return report, true, nil
}

// dayStart truncates t to its local day boundary.
func (s *DigestService) dayStart(t time.Time) time.Time {
	t = t.In(s.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}

func (s *DigestService) push(ctx context.Context, report *entities.DigestReport) {
	for _, to := range s.recipients {
		if err := s.messenger.Push(ctx, to, report.Body); err != nil {
			s.logger.WithError(err).WithField("recipient", to).Error("push digest")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(report.Body); err != nil {
			s.logger.WithError(err).Error("notify ops channel")
		}
	}
}

func formatDigest(r *entities.DigestReport) string {
	var sb strings.Builder
	sb.WriteString("📊 每日客服摘要 " + r.WindowKey + "\n\n")
	sb.WriteString(fmt.Sprintf("對話數：%d（共 %d 則訊息）\n", r.Conversations, r.Messages))
	sb.WriteString(fmt.Sprintf("自動解決：%d\n", r.AutoResolved))
	sb.WriteString(fmt.Sprintf("轉接人工：%d\n", r.Escalated))
	sb.WriteString(fmt.Sprintf("待處理工單：%d\n", r.Pending))
	if r.Conversations > 0 {
		sb.WriteString(fmt.Sprintf("自動解決率：%d%%\n", r.AutoResolved*100/r.Conversations))
	}
	return sb.String()
}
