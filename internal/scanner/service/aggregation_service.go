package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"golang-stock-scanner/internal/scanner/aggregator"
	"golang-stock-scanner/internal/scanner/config"
	"golang-stock-scanner/internal/scanner/dto"
	"golang-stock-scanner/internal/scanner/repository"
	"golang-stock-scanner/pkg/common"
	"golang-stock-scanner/pkg/logger"
	"golang-stock-scanner/pkg/telegram"
	"golang-stock-scanner/pkg/utils"
)

// AggregationService consumes aggregation triggers and rebuilds one account's
// watchlist. An incomplete input set keeps the previous watchlist live.
type AggregationService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Aggregate(ctx context.Context, accountID string) error
}

type aggregationService struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *goRedis.Client
	accountRepo repository.AccountRepository
	runRepo     repository.RunRepository
	agg         *aggregator.Aggregator
	telegramBot telegram.Notifier
}

func NewAggregationService(cfg *config.Config, log *logger.Logger,
	redisClient *goRedis.Client,
	accountRepo repository.AccountRepository,
	runRepo repository.RunRepository,
	agg *aggregator.Aggregator,
	telegramBot telegram.Notifier) AggregationService {
	return &aggregationService{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		accountRepo: accountRepo,
		runRepo:     runRepo,
		agg:         agg,
		telegramBot: telegramBot,
	}
}

func (s *aggregationService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &goRedis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamWatchlistAggregate, ">"},
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
	accountID, ok := s.decodeTrigger(message)
	if !ok {
		s.ackNDel(ctx, message.ID)
		return
	}

	if err := s.Aggregate(ctx, accountID); err != nil {
		s.log.Error("Failed to aggregate watchlist", logger.ErrorField(err),
			logger.Field("message_id", message.ID),
			logger.StringField("account_id", accountID))
		return
	}
	s.ackNDel(ctx, message.ID)
}

// Aggregate rebuilds and publishes the account's watchlist, then notifies.
// An InputError is final for this trigger: the missing run will raise a new
// trigger when it completes.
func (s *aggregationService) Aggregate(ctx context.Context, accountID string) error {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		s.log.Error("Failed to load account", logger.ErrorField(err), logger.StringField("account_id", accountID))
		return err
	}
	strategies, err := s.accountRepo.GetAccountStrategies(ctx, accountID)
	if err != nil {
		s.log.Error("Failed to load account strategies", logger.ErrorField(err), logger.StringField("account_id", accountID))
		return err
	}

	watchlist, err := s.agg.Aggregate(ctx, account, strategies)
	if err != nil {
		var inputErr *aggregator.InputError
		if errors.As(err, &inputErr) {
			fields := []zap.Field{
				logger.StringField("account_id", accountID),
				logger.StringField("reason", inputErr.Reason),
			}
			if previous, prevErr := s.runRepo.LatestWatchlist(ctx, accountID); prevErr == nil && previous != nil {
				fields = append(fields, logger.StringField("live_watchlist_id", previous.ID))
			}
			s.log.Warn("Aggregation skipped, previous watchlist stays live", fields...)
			return nil
		}
		return err
	}

	for _, msg := range telegram.FormatWatchlistForTelegram(watchlist, utils.TimeNowWIB()) {
		if err := s.telegramBot.SendMessage(msg); err != nil {
			// Notification failure never invalidates the publication.
			s.log.Error("Failed to send watchlist notification", logger.ErrorField(err), logger.StringField("account_id", accountID))
			break
		}
	}
	return nil
}

func (s *aggregationService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &goRedis.XAutoClaimArgs{
		Stream:   common.RedisStreamWatchlistAggregate,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Scanner.RedisStreamAggregateMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		s.log.Error("Failed to claim aggregation trigger on retry", logger.ErrorField(err))
		return
	}
	if len(msgs) == 0 {
		return
	}

	msg := msgs[0]
	pendingInfo, err := s.redisClient.XPendingExt(ctx, &goRedis.XPendingExtArgs{
		Stream: common.RedisStreamWatchlistAggregate,
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
			logger.StringField("stream", common.RedisStreamWatchlistAggregate),
			logger.StringField("message_id", msg.ID))
		return
	}

	accountID, ok := s.decodeTrigger(msg)
	if !ok {
		s.ackNDel(ctx, msg.ID)
		return
	}

	if pendingInfo[0].RetryCount >= s.cfg.Scanner.RedisStreamAggregateMaxRetry {
		s.log.Error("pending msg retry count exceeded",
			logger.StringField("stream", common.RedisStreamWatchlistAggregate),
			logger.StringField("message_id", msg.ID),
			logger.StringField("account_id", accountID),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)))
		s.ackNDel(ctx, msg.ID)
		return
	}

	if err := s.Aggregate(ctx, accountID); err != nil {
		s.log.Error("Failed to aggregate watchlist on retry", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}
	s.ackNDel(ctx, msg.ID)
	s.log.Info("Retry aggregation trigger processed successfully", logger.StringField("account_id", accountID))
}

func (s *aggregationService) decodeTrigger(message goRedis.XMessage) (string, bool) {
	taskData, ok := message.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		return "", false
	}
	var streamData dto.StreamDataWatchlistAggregate
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		s.log.Error("Failed to unmarshal aggregation trigger", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return "", false
	}
	if streamData.AccountID == "" {
		s.log.Error("aggregation trigger missing account_id", logger.Field("message_id", message.ID))
		return "", false
	}
	return streamData.AccountID, true
}

func (s *aggregationService) ackNDel(ctx context.Context, messageID string) {
	if err := s.redisClient.XAck(ctx, common.RedisStreamWatchlistAggregate, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge aggregation trigger", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := s.redisClient.XDel(ctx, common.RedisStreamWatchlistAggregate, messageID).Err(); err != nil {
		s.log.Error("Failed to delete aggregation trigger", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}
