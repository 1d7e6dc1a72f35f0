// Package estimator composes the order-book state, the volatility window
// and the cost models into the query-side estimate pipeline.
package estimator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cost_engine/internal/features"
	"cost_engine/internal/impact"
	"cost_engine/internal/latlog"
	"cost_engine/internal/metrics"
	"cost_engine/internal/models"
	"cost_engine/internal/orderbook"
	"cost_engine/internal/params"
	"cost_engine/internal/volatility"
)

// ErrBookNotReady marks queries that arrive before the symbol's book has
// a usable two-sided snapshot.
var ErrBookNotReady = errors.New("order book not ready")

// Publisher receives one telemetry record per estimate. Both the Kafka
// and the NATS producer satisfy it.
type Publisher interface {
	WriteJSON(symbol string, v any) error
}

type Config struct {
	ImbalanceLevels  int // top-N levels for the imbalance feature
	VolatilityWindow int // ring buffer capacity, samples
}

func (c *Config) fill() {
	if c.ImbalanceLevels <= 0 {
		c.ImbalanceLevels = features.DefaultImbalanceLevels
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = volatility.DefaultWindow
	}
}

// Engine is safe for one feed writer (Apply) plus any number of
// concurrent estimate readers.
type Engine struct {
	cfg    Config
	store  *orderbook.Store
	params *params.Store
	met    *metrics.Set
	log    zerolog.Logger
	lat    *latlog.Logger
	pub    Publisher

	volMu sync.Mutex
	vols  map[string]*volatility.Estimator
}

func New(cfg Config, store *orderbook.Store, ps *params.Store, met *metrics.Set, log zerolog.Logger, lat *latlog.Logger, pub Publisher) *Engine {
	cfg.fill()
	return &Engine{
		cfg:    cfg,
		store:  store,
		params: ps,
		met:    met,
		log:    log,
		lat:    lat,
		pub:    pub,
		vols:   make(map[string]*volatility.Estimator),
	}
}

// Apply ingests one feed update and, when it lands, feeds the new mid
// price into the symbol's volatility window. Feed-writer only.
func (e *Engine) Apply(u orderbook.Update) orderbook.ApplyResult {
	res := e.store.Apply(u)
	e.met.UpdatesTotal.WithLabelValues(u.Symbol, res.String()).Inc()

	switch res {
	case orderbook.ResultApplied:
		snap, _ := e.store.View(u.Symbol, time.Now())
		if mid, ok := snap.Mid(); ok {
			vol := e.vol(u.Symbol)
			vol.Observe(mid, snap.Time)
			if sigma, ready := vol.Volatility(); ready {
				e.met.Volatility.WithLabelValues(u.Symbol).Set(sigma)
			}
		}
	case orderbook.ResultGap:
		e.met.SequenceGapsTotal.WithLabelValues(u.Symbol).Inc()
		e.log.Warn().Str("symbol", u.Symbol).Uint64("seq", u.Seq).Msg("sequence gap, awaiting snapshot")
	case orderbook.ResultRejectedCrossed:
		e.met.CrossedBooksTotal.WithLabelValues(u.Symbol).Inc()
		e.log.Warn().Str("symbol", u.Symbol).Uint64("seq", u.Seq).Msg("crossed book rejected, awaiting snapshot")
	}
	return res
}

// BookState reports the feed state for health display.
func (e *Engine) BookState(symbol string) orderbook.State {
	return e.store.State(symbol, time.Now())
}

// Estimate runs the full cost pipeline against the latest snapshot.
//
// Data-sufficiency conditions (partial fill, impact model not ready,
// stale book) are flags on the estimate, not errors. Errors are limited
// to invalid requests and books with no usable snapshot.
func (e *Engine) Estimate(req models.CostRequest) (models.CostEstimate, error) {
	if err := req.Validate(); err != nil {
		return models.CostEstimate{}, err
	}

	stages := latlog.StartStages()
	now := time.Now()

	snap, state := e.store.View(req.Symbol, now)
	if snap == nil {
		return models.CostEstimate{}, fmt.Errorf("%w: %s has no snapshot yet", ErrBookNotReady, req.Symbol)
	}
	set := e.params.Get().For(req.Symbol)
	stages.Mark("snapshot")

	feat, ok := features.Compute(snap, e.cfg.ImbalanceLevels)
	if !ok {
		return models.CostEstimate{}, fmt.Errorf("%w: %s book is one-sided", ErrBookNotReady, req.Symbol)
	}
	stages.Mark("features")

	slip, err := set.Slippage.Estimate(snap, req.Side, req.Size, feat)
	if err != nil {
		return models.CostEstimate{}, fmt.Errorf("%w: %v", ErrBookNotReady, err)
	}
	stages.Mark("slippage")

	sigma, sigmaOK := e.vol(req.Symbol).Volatility()
	refVolume := features.DepthWithin(snap, req.Side, set.Impact.DepthLevels)
	imp, impErr := impact.Estimate(set.Impact, sigma, sigmaOK, req.Size, refVolume)
	if impErr != nil && !errors.Is(impErr, impact.ErrModelNotReady) {
		return models.CostEstimate{}, impErr
	}
	impactReady := impErr == nil
	stages.Mark("impact")

	probs := set.MakerTaker.Score(req.Size, feat.Spread, feat.Imbalance, req.Side)
	stages.Mark("maker_taker")

	notional := req.Size * feat.Mid
	fee := set.Fees.Fee(notional, req.MonthlyVolume, probs.Maker, probs.Taker)
	stages.Mark("fees")

	slippageCost := slip.QuantileBps / 10000 * notional
	total := slippageCost + fee
	if impactReady {
		total += imp.Total
	}

	est := models.CostEstimate{
		Symbol:           req.Symbol,
		Side:             req.Side,
		Size:             req.Size,
		Timestamp:        now.UnixMilli(),
		Mid:              feat.Mid,
		Notional:         notional,
		SlippageBps:      slip.QuantileBps,
		SlippageCost:     slippageCost,
		ImpactReady:      impactReady,
		FeeAmount:        fee,
		MakerProbability: probs.Maker,
		TakerProbability: probs.Taker,
		TotalCost:        total,
		PartialFill:      slip.PartialFill,
		FilledSize:       slip.FilledQty,
		BookState:        stateTag(state),
	}
	if impactReady {
		est.ImpactCost = imp.Total
	}
	stages.Mark("aggregate")

	est.LatencyMs = stages.TotalMs()
	est.StageMs = stages.Millis()

	e.observe(req.Symbol, est, stages, now, snap)
	return est, nil
}

func (e *Engine) observe(symbol string, est models.CostEstimate, stages *latlog.Stages, now time.Time, snap *orderbook.Snapshot) {
	e.met.EstimatesTotal.WithLabelValues(symbol, est.BookState).Inc()
	e.met.EstimateLatencyMs.Observe(est.LatencyMs)
	for name, ms := range est.StageMs {
		e.met.StageLatencyMs.WithLabelValues(name).Observe(ms)
	}
	if !snap.Time.IsZero() {
		e.met.BookStalenessMs.WithLabelValues(symbol).Set(float64(now.Sub(snap.Time)) / float64(time.Millisecond))
	}

	e.lat.Record(symbol, stages, map[string]any{
		"total_cost":   est.TotalCost,
		"book_state":   est.BookState,
		"partial_fill": est.PartialFill,
	})

	if e.pub != nil {
		if err := e.pub.WriteJSON(symbol, models.TelemetryFromEstimate(est)); err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("telemetry publish failed")
		}
	}
}

// stateTag collapses the internal state machine to the two confidence
// tags estimates carry: anything other than a live sync reads Stale.
func stateTag(st orderbook.State) string {
	if st == orderbook.StateSynced {
		return orderbook.StateSynced.String()
	}
	return orderbook.StateStale.String()
}

func (e *Engine) vol(symbol string) *volatility.Estimator {
	e.volMu.Lock()
	defer e.volMu.Unlock()
	v := e.vols[symbol]
	if v == nil {
		v = volatility.New(e.cfg.VolatilityWindow)
		e.vols[symbol] = v
	}
	return v
}
