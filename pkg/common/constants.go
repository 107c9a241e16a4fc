package common

const (
	RedisStreamScanTrigger        = "scan.run.trigger"
	RedisStreamWatchlistAggregate = "watchlist.aggregate"

	RedisStreamGroup    = "scanner-group"
	RedisStreamConsumer = "scanner-consumer"
)
