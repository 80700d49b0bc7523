package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	DefaultWindowDays  = 30
	MaxWindowDays      = 365
	DefaultWeeklyGoal  = 40
	DefaultSlotsPerDay = 8
	DefaultCacheTTL    = 30 * time.Second

	viewStats    = "stats"
	viewInsights = "insights"
)

type Config struct {
	CacheTTL    time.Duration
	WeeklyGoal  int
	SlotsPerDay int
}

// Service loads appointment records and derives dashboard snapshots from them.
// Snapshots are cached until the next appointment change.
type Service struct {
	repo      repository.AppointmentRepository
	cache     *cache.Cache
	config    Config
	predictor Predictor
	validator validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time

	// generation counts flushes; a snapshot read before a flush is not cached.
	mu         sync.Mutex
	generation uint64
}

func NewService(repo repository.AppointmentRepository, config Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.WeeklyGoal <= 0 {
		config.WeeklyGoal = DefaultWeeklyGoal
	}
	if config.SlotsPerDay <= 0 {
		config.SlotsPerDay = DefaultSlotsPerDay
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		cache:     cache.New(config.CacheTTL, 2*config.CacheTTL),
		config:    config,
		predictor: DefaultPredictor(),
		validator: validator.New(),
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithPredictor(p Predictor) *Service {
	s.predictor = p
	return s
}

// ComputeStats returns counts and trends for the scope. On a store failure it
// returns a zero snapshot flagged as degraded together with the store error.
func (s *Service) ComputeStats(ctx context.Context, scope model.StatsScope) (*model.StatsSnapshot, error) {
	scope.Days = clampDays(scope.Days, 0)
	key := fmt.Sprintf("%s:%s:%d", viewStats, scope.Date, scope.Days)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.StatsRequest(viewStats, true)
		return cached.(*model.StatsSnapshot), nil
	}
	s.metrics.StatsRequest(viewStats, false)

	now := s.now()
	filters := &model.AppointmentFilters{Date: scope.Date}
	if scope.Days > 0 {
		from := now.AddDate(0, 0, -scope.Days)
		filters.CreatedFrom = &from
	}

	gen := s.currentGeneration()
	records, err := s.repo.List(ctx, filters)
	if err != nil {
		s.metrics.StatsFallback(viewStats)
		snapshot := s.buildStats(scope, nil, now)
		snapshot.Degraded = true
		return snapshot, apperrors.NewStore("compute stats", fmt.Errorf("failed to load appointments: %w", err))
	}

	snapshot := s.buildStats(scope, records, now)
	s.store(key, snapshot, gen)
	return snapshot, nil
}

func (s *Service) buildStats(scope model.StatsScope, records []*model.Appointment, now time.Time) *model.StatsSnapshot {
	peak, _ := PeakHour(records)
	return &model.StatsSnapshot{
		Scope:          scope,
		Counts:         CountByStatus(records),
		ByType:         CountByType(records),
		CompletionRate: CompletionRate(records),
		Today:          TodayCount(records, now),
		ThisWeek:       WeeklyWindowCount(records, now),
		WeeklyGoal:     s.config.WeeklyGoal,
		DailyTrends:    DailyTrend(records),
		TimeSlots:      TimeSlots(records),
		PeakHour:       peak,
		GeneratedAt:    now,
	}
}

// ComputeInsights analyses appointments created in the trailing window. On a
// store failure the snapshot is built from no records, recommends collecting
// more data and is flagged as degraded.
func (s *Service) ComputeInsights(ctx context.Context, windowDays int) (*model.InsightsSnapshot, error) {
	windowDays = clampDays(windowDays, DefaultWindowDays)
	key := fmt.Sprintf("%s:%d", viewInsights, windowDays)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.StatsRequest(viewInsights, true)
		return cached.(*model.InsightsSnapshot), nil
	}
	s.metrics.StatsRequest(viewInsights, false)

	now := s.now()
	from := now.AddDate(0, 0, -windowDays)
	gen := s.currentGeneration()
	records, err := s.repo.List(ctx, &model.AppointmentFilters{CreatedFrom: &from})
	if err != nil {
		s.metrics.StatsFallback(viewInsights)
		snapshot := s.buildInsights(nil, windowDays, now)
		snapshot.Recommendations = []model.Recommendation{StartCollectingRecommendation}
		snapshot.Degraded = true
		return snapshot, apperrors.NewStore("compute insights", fmt.Errorf("failed to load appointments: %w", err))
	}

	snapshot := s.buildInsights(records, windowDays, now)
	s.store(key, snapshot, gen)
	return snapshot, nil
}

func (s *Service) buildInsights(records []*model.Appointment, windowDays int, now time.Time) *model.InsightsSnapshot {
	byType := CountByType(records)
	completed := CountByStatus(records).Completed
	completionRate := CompletionRate(records)
	peak, bookings := PeakHour(records)
	peakPercentage := Percentage(bookings, len(records))

	return &model.InsightsSnapshot{
		WindowDays:       windowDays,
		DemandPrediction: s.predictor.Predict(records, windowDays),
		Capacity: model.CapacityInsight{
			Utilization: CapacityUtilization(len(records), windowDays, s.config.SlotsPerDay),
			Status:      CapacityStatus(completionRate),
		},
		PeakHours: model.PeakHoursInsight{
			PeakHour:   peak + ":00",
			Bookings:   bookings,
			Percentage: peakPercentage,
		},
		Customers: model.CustomerInsight{UniqueCustomers: UniqueCustomers(records)},
		Recommendations: Recommendations(Signals{
			CompletionRate:     completionRate,
			Urgent:             byType.Urgent,
			Regular:            byType.Regular,
			PeakHourPercentage: peakPercentage,
		}),
		Chart: ChartSeries(records, windowDays, now),
		Summary: model.InsightsSummary{
			Total:          len(records),
			Completed:      completed,
			Urgent:         byType.Urgent,
			Regular:        byType.Regular,
			CompletionRate: completionRate,
		},
		GeneratedAt: now,
	}
}

// GenerateReport wraps an insights snapshot with report metadata.
func (s *Service) GenerateReport(ctx context.Context, req *model.ReportRequest, actor string) (*model.Report, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	insights, err := s.ComputeInsights(ctx, req.DateRange)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		ID:          uuid.New().String(),
		ReportType:  req.ReportType,
		GeneratedBy: actor,
		GeneratedAt: s.now(),
		Insights:    *insights,
	}, nil
}

// AppointmentChanged drops every cached snapshot.
func (s *Service) AppointmentChanged(_ context.Context, change model.AppointmentChange) error {
	s.mu.Lock()
	s.generation++
	s.cache.Flush()
	s.mu.Unlock()
	s.logger.Debug("Stats cache flushed", "event_type", change.EventType)
	return nil
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Service) store(key string, snapshot interface{}, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.cache.SetDefault(key, snapshot)
}

func clampDays(days, fallback int) int {
	switch {
	case days <= 0:
		return fallback
	case days > MaxWindowDays:
		return MaxWindowDays
	}
	return days
}
