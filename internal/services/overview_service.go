package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"nestegg/internal/aggregate"
	"nestegg/internal/cache"
	"nestegg/internal/core"
	"nestegg/internal/ports"
	"nestegg/internal/viewmodel"
)

// Overview is everything the dashboard renders for one user.
type Overview struct {
	Totals             aggregate.Totals           `json:"totals"`
	Assets             []viewmodel.Section        `json:"assets"`
	Liabilities        []viewmodel.Section        `json:"liabilities"`
	AssetBreakdown     []aggregate.CategoryShare  `json:"assetBreakdown"`
	LiabilityBreakdown []aggregate.CategoryShare  `json:"liabilityBreakdown"`
	Accounts           []viewmodel.Account        `json:"accounts"`
	Calendar           map[string]decimal.Decimal `json:"calendar"`
	GeneratedAt        time.Time                  `json:"generatedAt"`

	history []core.Account
}

// CalendarDays is how far back the calendar of daily net changes reaches.
const CalendarDays = 90

// OverviewService builds and caches per-user overviews.
type OverviewService struct {
	reader   ports.OverviewReader
	txs      ports.TransactionStore
	cache    cache.Cache[*Overview]
	group    singleflight.Group
	lookback int
	now      func() time.Time

	// generations count invalidations per user. A load only fills the
	// cache when no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewOverviewService(store ports.Store, c cache.Cache[*Overview], lookbackYears int) *OverviewService {
	if lookbackYears < 1 {
		lookbackYears = 3
	}
	return &OverviewService{
		reader:      store,
		txs:         store,
		cache:       c,
		lookback:    lookbackYears,
		now:         func() time.Time { return time.Now().UTC() },
		generations: make(map[string]uint64),
	}
}

// Since is the start of the balance lookback window.
func (s *OverviewService) Since() time.Time {
	return s.now().AddDate(-s.lookback, 0, 0)
}

// Overview returns the user's dashboard, from cache when fresh. Concurrent
// misses for the same user share one load.
func (s *OverviewService) Overview(ctx context.Context, userID string) (*Overview, error) {
	if s.cache != nil {
		if o, ok := s.cache.Get(userID); ok {
			return o, nil
		}
	}

	// Shared by every waiting caller, so it outlives the first one.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(userID, func() (interface{}, error) {
		gen := s.generation(userID)
		o, err := s.build(loadCtx, userID)
		if err != nil {
			return nil, err
		}
		s.store(userID, gen, o)
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Overview load shared", "user_id", userID)
	}
	return v.(*Overview), nil
}

// Chart returns the merged balance series for the user's accounts.
func (s *OverviewService) Chart(ctx context.Context, userID string, opts aggregate.ChartOptions) ([]aggregate.ChartRow, error) {
	o, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return aggregate.BuildChartSeriesWithOptions(o.history, opts), nil
}

// History returns the accounts with balance history behind the cached overview.
func (s *OverviewService) History(ctx context.Context, userID string) ([]core.Account, error) {
	o, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return o.history, nil
}

func (s *OverviewService) build(ctx context.Context, userID string) (*Overview, error) {
	start := time.Now()
	accounts, err := s.reader.Overview(ctx, userID, s.Since())
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	txs, err := s.txs.ListUserTransactions(ctx, userID, s.now().AddDate(0, 0, -CalendarDays))
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	o := &Overview{
		Totals:             aggregate.ComputeTotals(accounts),
		Assets:             viewmodel.Sections(accounts, core.GroupAssets),
		Liabilities:        viewmodel.Sections(accounts, core.GroupLiabilities),
		AssetBreakdown:     aggregate.Breakdown(accounts, core.GroupAssets),
		LiabilityBreakdown: aggregate.Breakdown(accounts, core.GroupLiabilities),
		Accounts:           viewmodel.ToViewModels(accounts),
		Calendar:           aggregate.DailyNet(txs),
		GeneratedAt:        s.now(),
		history:            accounts,
	}

	slog.InfoContext(ctx, "Overview built",
		"user_id", userID,
		"accounts", len(accounts),
		"net_worth", o.Totals.NetWorth.StringFixed(2),
		"duration_ms", time.Since(start).Milliseconds())
	return o, nil
}

// Invalidate drops the cached overview for userID. Loads already running
// are not cached and later callers start a fresh one.
func (s *OverviewService) Invalidate(userID string) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()

	s.group.Forget(userID)
	if s.cache != nil {
		s.cache.Delete(userID)
	}
}

func (s *OverviewService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// store caches o unless userID was invalidated after the load began.
func (s *OverviewService) store(userID string, gen uint64, o *Overview) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		slog.Debug("Discarding overview loaded before a write", "user_id", userID)
		return
	}
	s.cache.Set(userID, o)
}
