package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"golang-stock-scanner/internal/entity"
	"golang-stock-scanner/internal/scanner/config"
	"golang-stock-scanner/internal/scanner/dto"
	"golang-stock-scanner/pkg/logger"
)

// PriceHistoryRepository fetches daily bars from the chart API. Fetched
// series are cached per symbol; the as-of cutoff is applied on every read so
// a cached series never leaks bars past the evaluation date.
type PriceHistoryRepository interface {
	GetHistory(ctx context.Context, symbol string, asOf time.Time) ([]entity.PriceBar, error)
}

type priceHistoryRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	inmemoryCache  *cache.Cache
}

func NewPriceHistoryRepository(cfg *config.Config, log *logger.Logger) PriceHistoryRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.MarketData.MaxRequestPerMinute)
	return &priceHistoryRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		inmemoryCache:  cache.New(cfg.MarketData.CacheTTL, 2*cfg.MarketData.CacheTTL),
	}
}

func (r *priceHistoryRepository) GetHistory(ctx context.Context, symbol string, asOf time.Time) ([]entity.PriceBar, error) {
	bars, err := r.getSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	cutoff := asOf.Unix()
	out := make([]entity.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Timestamp.Unix() > cutoff {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func (r *priceHistoryRepository) getSeries(ctx context.Context, symbol string) ([]entity.PriceBar, error) {
	cacheKey := fmt.Sprintf("chart:%s:%s:%s", symbol, r.cfg.MarketData.Interval, r.cfg.MarketData.Range)
	if cached, found := r.inmemoryCache.Get(cacheKey); found {
		return cached.([]entity.PriceBar), nil
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		r.cfg.MarketData.BaseURL, symbol, r.cfg.MarketData.Interval, r.cfg.MarketData.Range)

	body, err := r.sendRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var response dto.ChartResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}
	if response.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, response.Chart.Error.Description)
	}
	if len(response.Chart.Result) == 0 || len(response.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart API returned no data for %s", symbol)
	}

	result := response.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]entity.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		// Halted sessions come back as nulls; skip the whole bar.
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		bars = append(bars, entity.PriceBar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      decimal.NewFromFloat(*quote.Open[i]),
			High:      decimal.NewFromFloat(*quote.High[i]),
			Low:       decimal.NewFromFloat(*quote.Low[i]),
			Close:     decimal.NewFromFloat(*quote.Close[i]),
			Volume:    volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	r.inmemoryCache.Set(cacheKey, bars, cache.DefaultExpiration)
	r.log.DebugContext(ctx, "Fetched price history",
		logger.StringField("symbol", symbol),
		logger.IntField("bars", len(bars)))

	return bars, nil
}

func (r *priceHistoryRepository) sendRequest(ctx context.Context, url string) ([]byte, error) {
	fields := []zap.Field{
		zap.String("url", url),
		zap.Int("max_request_per_minute", r.cfg.MarketData.MaxRequestPerMinute),
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to wait for request limit", fields...)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to create new http request", fields...)
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to send request to chart API", fields...)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fields = append(fields, zap.Int("status_code", resp.StatusCode))
		r.log.ErrorContext(ctx, "Received non-OK response from chart API", fields...)
		return nil, fmt.Errorf("chart API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to read response body from chart API", fields...)
		return nil, err
	}

	return body, nil
}
