package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"golang-stock-scanner/internal/scanner/config"
	"golang-stock-scanner/internal/scanner/dto"
	"golang-stock-scanner/internal/scanner/orchestrator"
	"golang-stock-scanner/internal/scanner/repository"
	"golang-stock-scanner/internal/scanner/strategy"
	"golang-stock-scanner/pkg/common"
	"golang-stock-scanner/pkg/logger"
	"golang-stock-scanner/pkg/telegram"
	"golang-stock-scanner/pkg/utils"
)

// ScanService consumes scan triggers and runs the orchestrator. A completed
// run fans out one aggregation trigger per account that references the
// scanned strategy.
type ScanService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Scan(ctx context.Context, strategyID string, asOf time.Time) error
}

type scanService struct {
	cfg          *config.Config
	log          *logger.Logger
	redisClient  *goRedis.Client
	strategyRepo repository.StrategyRepository
	accountRepo  repository.AccountRepository
	orch         *orchestrator.Orchestrator
	telegramBot  telegram.Notifier
}

func NewScanService(cfg *config.Config, log *logger.Logger,
	redisClient *goRedis.Client,
	strategyRepo repository.StrategyRepository,
	accountRepo repository.AccountRepository,
	orch *orchestrator.Orchestrator,
	telegramBot telegram.Notifier) ScanService {
	return &scanService{
		cfg:          cfg,
		log:          log,
		redisClient:  redisClient,
		strategyRepo: strategyRepo,
		accountRepo:  accountRepo,
		orch:         orch,
		telegramBot:  telegramBot,
	}
}

func (s *scanService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &goRedis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamScanTrigger, ">"},
		Count:    1,
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if err == context.Canceled || err == goRedis.Nil {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]
	streamData, ok := s.decodeTrigger(message)
	if !ok {
		// Malformed payloads can never succeed; drop them.
		s.ackNDel(ctx, common.RedisStreamScanTrigger, message.ID)
		return
	}

	s.log.Debug("Processing scan trigger",
		logger.StringField("strategy_id", streamData.StrategyID),
		logger.StringField("as_of", streamData.AsOf.Format(time.RFC3339)))

	if err := s.Scan(ctx, streamData.StrategyID, streamData.AsOf); err != nil {
		if s.isTerminal(err) {
			s.ackNDel(ctx, common.RedisStreamScanTrigger, message.ID)
			return
		}
		s.log.Error("Failed to run scan", logger.ErrorField(err),
			logger.Field("message_id", message.ID),
			logger.StringField("strategy_id", streamData.StrategyID))
		return
	}

	s.ackNDel(ctx, common.RedisStreamScanTrigger, message.ID)
	s.log.Debug("Scan trigger processed successfully", logger.StringField("strategy_id", streamData.StrategyID))
}

// Scan resolves the latest definition, runs the orchestrator, and on a
// completed run enqueues aggregation for every account referencing the
// strategy.
func (s *scanService) Scan(ctx context.Context, strategyID string, asOf time.Time) error {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	def, err := s.strategyRepo.GetLatestDefinition(ctx, strategyID)
	if err != nil {
		s.log.Error("Failed to load strategy definition", logger.ErrorField(err), logger.StringField("strategy_id", strategyID))
		return err
	}

	run, err := s.orch.Scan(ctx, def, asOf)
	if err != nil {
		return err
	}

	if run.FailureReason.Valid {
		s.log.Error("Scan run failed",
			logger.StringField("run_id", run.ID),
			logger.StringField("strategy_id", strategyID),
			logger.StringField("reason", run.FailureReason.String))
		msg := telegram.FormatErrorAlertMessage(utils.TimeNowWIB(),
			fmt.Sprintf("Scan run %s for strategy %s failed: %s", run.ID, strategyID, run.FailureReason.String))
		if err := s.telegramBot.SendMessage(msg); err != nil {
			s.log.Error("Failed to send telegram alert", logger.ErrorField(err))
		}
		return nil
	}

	return s.enqueueAggregations(ctx, strategyID)
}

func (s *scanService) enqueueAggregations(ctx context.Context, strategyID string) error {
	accounts, err := s.accountRepo.GetAccountsByStrategy(ctx, strategyID)
	if err != nil {
		s.log.Error("Failed to load accounts for strategy", logger.ErrorField(err), logger.StringField("strategy_id", strategyID))
		return err
	}

	for _, account := range accounts {
		payload, err := json.Marshal(dto.StreamDataWatchlistAggregate{AccountID: account.AccountID})
		if err != nil {
			s.log.Error("Failed to marshal aggregation trigger", logger.ErrorField(err), logger.StringField("account_id", account.AccountID))
			continue
		}
		if err := s.redisClient.XAdd(ctx, &goRedis.XAddArgs{
			Stream: common.RedisStreamWatchlistAggregate,
			Values: map[string]interface{}{"payload": payload},
			MaxLen: s.cfg.Redis.StreamMaxLen,
		}).Err(); err != nil {
			s.log.Error("Failed to enqueue aggregation trigger", logger.ErrorField(err), logger.StringField("account_id", account.AccountID))
			return err
		}
		s.log.Debug("Enqueued aggregation trigger", logger.StringField("account_id", account.AccountID))
	}
	return nil
}

func (s *scanService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &goRedis.XAutoClaimArgs{
		Stream:   common.RedisStreamScanTrigger,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Scanner.RedisStreamScanTriggerMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		s.log.Error("Failed to claim scan trigger on retry", logger.ErrorField(err))
		return
	}
	if len(msgs) == 0 {
		return
	}

	msg := msgs[0]
	pendingInfo, err := s.redisClient.XPendingExt(ctx, &goRedis.XPendingExtArgs{
		Stream: common.RedisStreamScanTrigger,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		s.log.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}
	if len(pendingInfo) == 0 {
		s.log.Warn("pending msg not found, but exist on xautoclaim",
			logger.StringField("stream", common.RedisStreamScanTrigger),
			logger.StringField("message_id", msg.ID))
		return
	}

	streamData, ok := s.decodeTrigger(msg)
	if !ok {
		s.ackNDel(ctx, common.RedisStreamScanTrigger, msg.ID)
		return
	}

	if pendingInfo[0].RetryCount >= s.cfg.Scanner.RedisStreamScanTriggerMaxRetry {
		s.log.Error("pending msg retry count exceeded",
			logger.StringField("stream", common.RedisStreamScanTrigger),
			logger.StringField("message_id", msg.ID),
			logger.StringField("strategy_id", streamData.StrategyID),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)))
		alert := telegram.FormatErrorAlertMessage(utils.TimeNowWIB(),
			fmt.Sprintf("Scan trigger retry count exceeded for strategy %s", streamData.StrategyID))
		if err := s.telegramBot.SendMessage(alert); err != nil {
			s.log.Error("Failed to send telegram message retry exceeded", logger.ErrorField(err))
		}
		s.ackNDel(ctx, common.RedisStreamScanTrigger, msg.ID)
		return
	}

	if err := s.Scan(ctx, streamData.StrategyID, streamData.AsOf); err != nil {
		if s.isTerminal(err) {
			s.ackNDel(ctx, common.RedisStreamScanTrigger, msg.ID)
			return
		}
		s.log.Error("Failed to run scan on retry", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}
	s.ackNDel(ctx, common.RedisStreamScanTrigger, msg.ID)
	s.log.Info("Retry scan trigger processed successfully", logger.StringField("strategy_id", streamData.StrategyID))
}

// isTerminal reports whether retrying the trigger can never help. A scan
// already in flight means this trigger is superseded; a config error needs a
// new strategy version, not another attempt.
func (s *scanService) isTerminal(err error) bool {
	var inProgress *orchestrator.RunInProgressError
	if errors.As(err, &inProgress) {
		s.log.Warn("Scan rejected, run already in progress",
			logger.StringField("strategy_id", inProgress.StrategyID),
			logger.StringField("run_id", inProgress.RunID))
		return true
	}
	var cfgErr *strategy.ConfigError
	if errors.As(err, &cfgErr) {
		s.log.Error("Strategy configuration rejected", logger.ErrorField(err))
		return true
	}
	return false
}

func (s *scanService) decodeTrigger(message goRedis.XMessage) (dto.StreamDataScanTrigger, bool) {
	var streamData dto.StreamDataScanTrigger
	taskData, ok := message.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		return streamData, false
	}
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		s.log.Error("Failed to unmarshal scan trigger", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return streamData, false
	}
	if streamData.StrategyID == "" {
		s.log.Error("scan trigger missing strategy_id", logger.Field("message_id", message.ID))
		return streamData, false
	}
	return streamData, true
}

func (s *scanService) ackNDel(ctx context.Context, streamName string, messageID string) {
	if err := s.redisClient.XAck(ctx, streamName, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge scan trigger", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := s.redisClient.XDel(ctx, streamName, messageID).Err(); err != nil {
		s.log.Error("Failed to delete scan trigger", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}
