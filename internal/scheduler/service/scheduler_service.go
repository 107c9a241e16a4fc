package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"golang-stock-scanner/internal/entity"
	"golang-stock-scanner/internal/scanner/dto"
	"golang-stock-scanner/internal/scheduler/config"
	"golang-stock-scanner/internal/scheduler/repository"
	"golang-stock-scanner/pkg/common"
	"golang-stock-scanner/pkg/logger"
)

// SchedulerService publishes scan triggers for due schedules.
type SchedulerService interface {
	Start(ctx context.Context)
	ProcessSchedules(ctx context.Context)
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(scheduleRepo repository.ScanScheduleRepository, redisClient *redis.Client, logger *logger.Logger, pollingInterval time.Duration, cfg *config.Config) SchedulerService {
	return &schedulerService{
		scheduleRepo:    scheduleRepo,
		redisClient:     redisClient,
		logger:          logger,
		pollingInterval: pollingInterval,
		cronParser:      cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		cfg:             cfg,
	}
}

type schedulerService struct {
	scheduleRepo    repository.ScanScheduleRepository
	redisClient     *redis.Client
	logger          *logger.Logger
	pollingInterval time.Duration
	cronParser      cron.Parser
	cfg             *config.Config
}

// Start begins the periodic schedule processing loop.
func (s *schedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler service stopping")
			return
		case <-ticker.C:
			s.ProcessSchedules(ctx)
		}
	}
}

// ProcessSchedules finds and enqueues scan triggers that are due.
func (s *schedulerService) ProcessSchedules(ctx context.Context) {
	schedules, err := s.scheduleRepo.FindSchedulesToRun(ctx)
	if err != nil {
		s.logger.Error("Failed to find schedules to run", logger.ErrorField(err))
		return
	}

	for _, schedule := range schedules {
		s.publishTrigger(ctx, schedule)
	}
}

func (s *schedulerService) publishTrigger(ctx context.Context, schedule entity.ScanSchedule) {
	now := time.Now()

	payload, err := json.Marshal(dto.StreamDataScanTrigger{
		StrategyID: schedule.StrategyID,
		AsOf:       now,
	})
	if err != nil {
		s.logger.Error("Failed to marshal scan trigger", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamScanTrigger,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: s.cfg.Redis.StreamMaxLen,
	}).Err(); err != nil {
		s.logger.Error("Failed to enqueue scan trigger", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	s.logger.Info("Scan trigger published",
		logger.StringField("strategy_id", schedule.StrategyID),
		logger.Field("schedule_id", schedule.ID))

	cronSchedule, err := s.cronParser.Parse(schedule.CronExpression)
	if err != nil {
		s.logger.Error("Failed to parse cron expression", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	schedule.LastExecution.Time = now
	schedule.LastExecution.Valid = true
	schedule.NextExecution.Time = cronSchedule.Next(now)
	schedule.NextExecution.Valid = true

	if err := s.scheduleRepo.Update(ctx, &schedule); err != nil {
		s.logger.Error("Failed to update next execution time", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
	}
}
