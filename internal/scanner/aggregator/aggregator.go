// Package aggregator combines completed scan runs of an account's strategy
// set into one ranked watchlist. The join is a pure barrier: every
// referenced strategy must have a completed run before any combination is
// attempted, and a publication is all-or-nothing.
package aggregator

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"golang-stock-scanner/internal/entity"
	"golang-stock-scanner/pkg/logger"
)

// InputError aborts an aggregation whose inputs are incomplete or whose
// account configuration is unusable. No watchlist is published; the previous
// publication stays the live one.
type InputError struct {
	AccountID string
	Reason    string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("aggregation input error for account %s: %s", e.AccountID, e.Reason)
}

// RunSource reads completed scan runs and their results. LatestCompletedRun
// returns (nil, nil) when the strategy has no completed run yet.
type RunSource interface {
	LatestCompletedRun(ctx context.Context, strategyID string) (*entity.ScanRun, error)
	GetResults(ctx context.Context, runID string) ([]entity.ScanResult, error)
}

// Publisher atomically stores a watchlist publication.
type Publisher interface {
	PublishWatchlist(ctx context.Context, watchlist *entity.Watchlist) error
}

type Aggregator struct {
	runs      RunSource
	publisher Publisher
	log       *logger.Logger
}

func New(runs RunSource, publisher Publisher, log *logger.Logger) *Aggregator {
	return &Aggregator{runs: runs, publisher: publisher, log: log}
}

type candidate struct {
	symbol   string
	combined float64
	included bool
}

// Aggregate joins the latest completed run per configured strategy, combines
// scores per the account's policy, ranks the included instruments (combined
// score descending, symbol ascending on ties) and publishes the watchlist.
func (a *Aggregator) Aggregate(ctx context.Context, account *entity.Account, strategies []entity.AccountStrategy) (*entity.Watchlist, error) {
	if len(strategies) == 0 {
		return nil, &InputError{AccountID: account.AccountID, Reason: "no strategies configured"}
	}
	switch account.PolicyKind {
	case entity.PolicyUnion, entity.PolicyIntersection, entity.PolicyWeighted:
	default:
		return nil, &InputError{AccountID: account.AccountID, Reason: fmt.Sprintf("unknown policy kind %q", account.PolicyKind)}
	}
	if account.PolicyKind == entity.PolicyWeighted {
		var sum float64
		for _, s := range strategies {
			if s.Weight < 0 {
				return nil, &InputError{AccountID: account.AccountID, Reason: fmt.Sprintf("negative weight for strategy %s", s.StrategyID)}
			}
			sum += s.Weight
		}
		if sum == 0 {
			return nil, &InputError{AccountID: account.AccountID, Reason: "strategy weights are all zero"}
		}
	}

	// Barrier: every referenced strategy needs a completed run before any
	// combination happens.
	resultsByStrategy := make(map[string]map[string]entity.ScanResult, len(strategies))
	symbols := map[string]bool{}
	for _, s := range strategies {
		run, err := a.runs.LatestCompletedRun(ctx, s.StrategyID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, &InputError{AccountID: account.AccountID, Reason: fmt.Sprintf("strategy %s has no completed scan run", s.StrategyID)}
		}

		results, err := a.runs.GetResults(ctx, run.ID)
		if err != nil {
			return nil, err
		}

		bySymbol := make(map[string]entity.ScanResult, len(results))
		for _, res := range results {
			bySymbol[res.Symbol] = res
			symbols[res.Symbol] = true
		}
		resultsByStrategy[s.StrategyID] = bySymbol
	}

	candidates := combine(account, strategies, resultsByStrategy, symbols)

	watchlist := &entity.Watchlist{
		ID:         uuid.NewString(),
		AccountID:  account.AccountID,
		PolicyKind: account.PolicyKind,
		Items:      rank(candidates, account.TopN),
	}
	for i := range watchlist.Items {
		watchlist.Items[i].WatchlistID = watchlist.ID
	}

	if err := a.publisher.PublishWatchlist(ctx, watchlist); err != nil {
		return nil, err
	}

	a.log.InfoContext(ctx, "Watchlist published",
		logger.StringField("account_id", account.AccountID),
		logger.StringField("watchlist_id", watchlist.ID),
		logger.StringField("policy", account.PolicyKind),
		logger.IntField("items", len(watchlist.Items)))

	return watchlist, nil
}

func combine(account *entity.Account, strategies []entity.AccountStrategy, resultsByStrategy map[string]map[string]entity.ScanResult, symbols map[string]bool) []candidate {
	var weightSum float64
	for _, s := range strategies {
		weightSum += s.Weight
	}

	candidates := make([]candidate, 0, len(symbols))
	for symbol := range symbols {
		c := candidate{symbol: symbol}

		switch account.PolicyKind {
		case entity.PolicyUnion:
			// Included when passing anywhere; combined score is the max.
			for _, s := range strategies {
				res, ok := resultsByStrategy[s.StrategyID][symbol]
				if !ok || !res.FiltersPassed {
					continue
				}
				if !c.included || float64(res.Score) > c.combined {
					c.combined = float64(res.Score)
				}
				c.included = true
			}

		case entity.PolicyIntersection:
			// Included only when present and passing everywhere; combined
			// score is the arithmetic mean.
			c.included = true
			var sum float64
			for _, s := range strategies {
				res, ok := resultsByStrategy[s.StrategyID][symbol]
				if !ok || !res.FiltersPassed {
					c.included = false
					break
				}
				sum += float64(res.Score)
			}
			if c.included {
				c.combined = sum / float64(len(strategies))
			}

		case entity.PolicyWeighted:
			// Weighted sum with normalized weights; absence and filter
			// failure contribute zero. Inclusion requires the threshold.
			for _, s := range strategies {
				res, ok := resultsByStrategy[s.StrategyID][symbol]
				if !ok || !res.FiltersPassed {
					continue
				}
				c.combined += s.Weight / weightSum * float64(res.Score)
			}
			c.included = c.combined >= account.InclusionThreshold
		}

		candidates = append(candidates, c)
	}
	return candidates
}

// rank orders included candidates by combined score descending with the
// symbol as a total tie-break, truncates to topN BUY items with dense ranks
// 1..N, and marks the rest WAIT (non-zero score) or SKIP.
func rank(candidates []candidate, topN int) []entity.WatchlistItem {
	included := make([]candidate, 0, len(candidates))
	excluded := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.included {
			included = append(included, c)
		} else {
			excluded = append(excluded, c)
		}
	}

	sort.Slice(included, func(i, j int) bool {
		if included[i].combined != included[j].combined {
			return included[i].combined > included[j].combined
		}
		return included[i].symbol < included[j].symbol
	})
	sort.Slice(excluded, func(i, j int) bool {
		return excluded[i].symbol < excluded[j].symbol
	})

	if topN <= 0 {
		topN = len(included)
	}

	items := make([]entity.WatchlistItem, 0, len(candidates))
	for i, c := range included {
		item := entity.WatchlistItem{
			Symbol:        c.symbol,
			CombinedScore: c.combined,
		}
		if i < topN {
			item.Rank = i + 1
			item.Signal = entity.SignalBuy
		} else if c.combined > 0 {
			item.Signal = entity.SignalWait
		} else {
			item.Signal = entity.SignalSkip
		}
		items = append(items, item)
	}
	for _, c := range excluded {
		items = append(items, entity.WatchlistItem{
			Symbol:        c.symbol,
			CombinedScore: c.combined,
			Signal:        entity.SignalSkip,
		})
	}
	return items
}
