package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shadiayoub/okx-bot/internal/engine"
	"github.com/shadiayoub/okx-bot/internal/exchange"
	"github.com/shadiayoub/okx-bot/internal/fusion"
	"github.com/shadiayoub/okx-bot/internal/indicator"
	"github.com/shadiayoub/okx-bot/internal/model"
	"github.com/shadiayoub/okx-bot/internal/predictor"
	"github.com/shadiayoub/okx-bot/internal/recorder"
	"github.com/shadiayoub/okx-bot/internal/risk"
)

// Deps are the collaborators one trading pass needs.
type Deps struct {
	Market   exchange.MarketData
	Account  exchange.AccountAPI
	Engine   *engine.Engine
	Sizer    *risk.Sizer
	Models   *predictor.Registry
	Recorder recorder.Recorder
	Trainer  Trainer

	Symbols   []model.SymbolConfig
	Params    indicator.Params
	Weights   fusion.Weights
	Threshold float64
	Lookback  int
}

// Scheduler drives the trading loop and the retraining trigger off cron.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context
	deps Deps
}

// NewScheduler creates a scheduler; Register wires the cron entries.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	if deps.Lookback <= 0 {
		deps.Lookback = 100
	}
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		Ctx:  ctx,
		deps: deps,
	}
}

// Register adds the trading tick and the retraining trigger.
func (s *Scheduler) Register(tickEvery time.Duration, retrainCron string) error {
	if _, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", tickEvery), func() {
		s.Tick(s.Ctx)
	}); err != nil {
		return fmt.Errorf("register trading tick: %w", err)
	}
	if retrainCron != "" {
		if _, err := s.Cron.AddFunc(retrainCron, func() {
			s.TriggerRetraining(s.Ctx)
		}); err != nil {
			return fmt.Errorf("register retraining trigger: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// Tick runs one trading pass. A pass still in flight wins: the new tick
// is skipped rather than queued, so a slow exchange cannot stack passes.
func (s *Scheduler) Tick(parent context.Context) {
	ctx, end, ok := s.deps.Engine.Session().BeginTick(parent)
	if !ok {
		log.Println("[WARN] previous tick still running, skipping")
		return
	}
	defer end()

	s.deps.Engine.RetryProtection(ctx)

	// One settings/account snapshot per pass keeps all symbols on the
	// same view even if the operator edits settings mid-tick.
	settings := s.deps.Engine.Session().Settings()
	status := s.deps.Engine.Session().Status()

	account, err := s.deps.Account.State(ctx)
	if err != nil {
		log.Printf("[ERROR] tick aborted, account state: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, sym := range s.deps.Symbols {
		if !sym.Enabled {
			continue
		}
		wg.Add(1)
		go func(sym model.SymbolConfig) {
			defer wg.Done()
			if err := s.processSymbol(ctx, sym, account, settings, status); err != nil {
				log.Printf("[ERROR] %s: %v", sym.OKXSymbol, err)
			}
		}(sym)
	}
	wg.Wait()
}

// processSymbol runs the snapshot-to-order pipeline for one symbol.
// Failures stay inside the symbol; the rest of the pass is unaffected.
func (s *Scheduler) processSymbol(
	ctx context.Context,
	sym model.SymbolConfig,
	account model.AccountState,
	settings model.SessionSettings,
	status model.SessionStatus,
) error {
	snap, err := s.deps.Market.Snapshot(ctx, sym.OKXSymbol, s.deps.Lookback)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	signals, err := indicator.Compute(snap, s.deps.Params)
	if err != nil {
		return fmt.Errorf("indicators: %w", err)
	}

	pred := s.predict(sym, snap)
	combined := fusion.Combine(signals, pred, s.deps.Weights, s.deps.Threshold)

	price := snap.Price()
	rec := &recorder.SignalRecord{
		Symbol:     sym.OKXSymbol,
		Price:      price,
		Signals:    signals,
		Prediction: pred,
		Combined:   combined,
	}

	if status != model.StatusRunning || !settings.AutoTrading {
		rec.NoOpReason = "session_not_trading"
		s.recordSignal(rec)
		return nil
	}

	plan, reason := s.deps.Sizer.Plan(combined, account, sym, settings, price, s.deps.Engine.Position(sym.OKXSymbol))
	if plan == nil {
		rec.NoOpReason = reason
		s.recordSignal(rec)
		return nil
	}
	s.recordSignal(rec)

	if err := s.deps.Engine.Apply(ctx, plan); err != nil {
		return fmt.Errorf("apply plan: %w", err)
	}
	return nil
}

// predict runs the symbol's active model. A missing or failing model
// degrades to a zero-confidence prediction so fusion falls back to the
// technical signals alone.
func (s *Scheduler) predict(sym model.SymbolConfig, snap *model.Snapshot) model.Prediction {
	p, err := s.deps.Models.Active(sym.ModelSymbol)
	if err != nil {
		if !errors.Is(err, model.ErrModelUnavailable) {
			log.Printf("[WARN] %s: model lookup: %v", sym.OKXSymbol, err)
		}
		return model.Prediction{}
	}

	features, err := predictor.Features(snap)
	if err != nil {
		log.Printf("[WARN] %s: features: %v", sym.OKXSymbol, err)
		return model.Prediction{}
	}

	pred, err := p.Predict(features)
	if err != nil {
		log.Printf("[WARN] %s: predict: %v", sym.OKXSymbol, err)
		return model.Prediction{}
	}
	return pred
}

// TriggerRetraining fires the training collaborator for every enabled
// symbol. Fire and forget: new model versions come back through
// Registry.Activate, never through this call.
func (s *Scheduler) TriggerRetraining(ctx context.Context) {
	if s.deps.Trainer == nil {
		return
	}
	for _, sym := range s.deps.Symbols {
		if !sym.Enabled {
			continue
		}
		go func(symbol string) {
			if err := s.deps.Trainer.Trigger(ctx, symbol); err != nil {
				log.Printf("[WARN] retraining trigger for %s: %v", symbol, err)
				return
			}
			log.Printf("[INFO] retraining triggered for %s", symbol)
		}(sym.ModelSymbol)
	}
}

func (s *Scheduler) recordSignal(rec *recorder.SignalRecord) {
	if err := s.deps.Recorder.RecordSignal(rec); err != nil {
		log.Printf("[ERROR] record signal for %s: %v", rec.Symbol, err)
	}
}
