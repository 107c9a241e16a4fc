package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"golang-stock-scanner/internal/scanner/config"
	"golang-stock-scanner/internal/scanner/service"
	"golang-stock-scanner/pkg/common"
	"golang-stock-scanner/pkg/logger"
	"golang-stock-scanner/pkg/utils"
)

// RedisConsumer manages the consumption of scan and aggregation triggers
// from the Redis streams.
type RedisConsumer struct {
	cfg                *config.Config
	redisClient        *redis.Client
	scanService        service.ScanService
	aggregationService service.AggregationService
	logger             *logger.Logger
	stopChan           chan struct{}
	wg                 sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	scanService service.ScanService,
	aggregationService service.AggregationService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:                cfg,
		redisClient:        redisClient,
		scanService:        scanService,
		aggregationService: aggregationService,
		logger:             log,
		stopChan:           make(chan struct{}),
	}
}

// Start begins the consumer's task processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.scanService.ProcessTask, common.RedisStreamScanTrigger, c.cfg.Scanner.RedisStreamScanTriggerTimeout)
	c.RegisterStreamHandler(ctx, c.aggregationService.ProcessTask, common.RedisStreamWatchlistAggregate, c.cfg.Scanner.RedisStreamAggregateTimeout)

	c.RegisterTickerHandler(ctx, c.scanService.ProcessRetries, c.cfg.Scanner.RedisStreamScanTriggerRetryInterval, c.cfg.Scanner.RedisStreamScanTriggerMaxIdleDuration, common.RedisStreamScanTrigger+"-retry")
	c.RegisterTickerHandler(ctx, c.aggregationService.ProcessRetries, c.cfg.Scanner.RedisStreamAggregateRetryInterval, c.cfg.Scanner.RedisStreamAggregateMaxIdleDuration, common.RedisStreamWatchlistAggregate+"-retry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
