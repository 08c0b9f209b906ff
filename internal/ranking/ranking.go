// Package ranking scores a deck with the optional remote scorer and falls back
// to the deterministic score whenever the remote call fails.
package ranking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/metrics"
	"github.com/spigell/matchmaker/internal/scoring"
	"github.com/spigell/matchmaker/internal/utils"
	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	DefaultBatchSize      = 3
	DefaultBatchDelay     = 2 * time.Second
	DefaultRequestTimeout = 20 * time.Second
)

// Ranker orders a deck by match score.
type Ranker struct {
	// Remote is optional. Without it every score is deterministic.
	Remote         ai.Scorer
	BatchSize      int
	BatchDelay     time.Duration
	RequestTimeout time.Duration
	// Learning applies swipe color counts to the deterministic score.
	Learning bool
	Logger   *zap.Logger
}

// Input is one ranking run.
type Input struct {
	Preferences *vehicle.Preferences
	History     learning.History
	// Inventory resolves history ids.
	Inventory *vehicle.Vehicles
	// Candidates are the vehicles to score. Nil means the whole inventory.
	Candidates *vehicle.Vehicles
	// Tally is optional. When nil it is built from History and Inventory.
	Tally *learning.Tally
}

// Report summarizes where the scores came from.
type Report struct {
	Total    int               `json:"total"`
	Remote   int               `json:"remote"`
	Fallback int               `json:"fallback"`
	Notice   string            `json:"notice,omitempty"`
	Sources  map[string]string `json:"sources"`
}

// Result is a scored copy of the candidates sorted by descending score.
type Result struct {
	Vehicles  *vehicle.Vehicles `json:"vehicles"`
	Reasoning map[string]string `json:"reasoning,omitempty"`
	Report    Report            `json:"report"`
}

type outcome struct {
	assessment *ai.Assessment
	err        error
	skipped    bool
}

// Rank scores every candidate. Remote failures never fail the run: when ctx ends
// mid-run, the vehicles not scored remotely keep their deterministic score.
// The error is reserved for the Ranker contract and is always nil here.
func (r *Ranker) Rank(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	defer func() { metrics.RankDuration.Observe(time.Since(start).Seconds()) }()

	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	candidates := in.Candidates
	if candidates == nil {
		candidates = in.Inventory
	}
	ranked := candidates.Clone()
	idx := in.Inventory.Index()

	tally := in.Tally
	if tally == nil {
		tally = learning.FromHistory(in.History, idx)
	}

	res := &Result{
		Vehicles:  ranked,
		Reasoning: make(map[string]string),
		Report: Report{
			Total:   ranked.Len(),
			Sources: make(map[string]string, ranked.Len()),
		},
	}

	var learned *learning.Tally
	if r.Learning {
		learned = tally
	}
	for _, v := range ranked.Items {
		v.MatchScore = scoring.Score(v, in.Preferences, scoring.LearningOptions(learned, v)...)
		res.Report.Sources[v.ID] = metrics.SourceDeterministic
	}

	if r.Remote == nil || ranked.Len() == 0 {
		metrics.ScoresTotal.WithLabelValues(metrics.SourceDeterministic).Add(float64(ranked.Len()))
		ranked.SortByScore()
		return res, nil
	}

	r.scoreRemote(ctx, log, in, idx, tally, res)

	ranked.SortByScore()
	return res, nil
}

func (r *Ranker) scoreRemote(ctx context.Context, log *zap.Logger, in Input, idx vehicle.Index, tally *learning.Tally, res *Result) {
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	timeout := r.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	items := res.Vehicles.Items
	outcomes := make([]outcome, len(items))
	attempted := len(items)
	var stop breaker

	for startIdx := 0; startIdx < len(items); startIdx += batchSize {
		if err := ctx.Err(); err != nil {
			stop.trip(err)
		}
		if startIdx > 0 && stop.tripped() == nil {
			if err := utils.WaitFor(ctx, r.BatchDelay); err != nil {
				stop.trip(err)
			}
		}
		if stop.tripped() != nil {
			attempted = startIdx
			break
		}

		end := min(startIdx+batchSize, len(items))

		var g errgroup.Group
		for i := startIdx; i < end; i++ {
			g.Go(func() error {
				if stop.tripped() != nil {
					outcomes[i] = outcome{skipped: true}
					return nil
				}

				reqCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				a, err := r.Remote.Score(reqCtx, &ai.Request{
					Vehicle:     items[i],
					Preferences: in.Preferences,
					History:     in.History,
					Inventory:   idx,
					Tally:       tally,
				})
				outcomes[i] = outcome{assessment: a, err: err}
				if err == nil {
					return nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					stop.trip(ctxErr)
				} else if ai.IsServiceWide(err) {
					stop.trip(err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, v := range items {
		out := outcomes[i]
		switch {
		case i >= attempted || out.skipped:
			res.Report.Sources[v.ID] = metrics.SourceFallback
			res.Report.Fallback++
		case out.err != nil:
			res.Report.Sources[v.ID] = metrics.SourceFallback
			res.Report.Fallback++
			metrics.RemoteFailuresTotal.WithLabelValues(ai.Reason(out.err)).Inc()
			if !ai.IsServiceWide(out.err) && ctx.Err() == nil {
				log.Warn("remote scoring failed, using standard score",
					append(logger.VehicleFields(v), zap.Error(out.err))...)
			}
		default:
			v.MatchScore = out.assessment.Score
			res.Report.Sources[v.ID] = metrics.SourceRemote
			res.Report.Remote++
			if out.assessment.Reasoning != "" {
				res.Reasoning[v.ID] = out.assessment.Reasoning
			}
		}
	}

	metrics.ScoresTotal.WithLabelValues(metrics.SourceRemote).Add(float64(res.Report.Remote))
	metrics.ScoresTotal.WithLabelValues(metrics.SourceFallback).Add(float64(res.Report.Fallback))

	serviceErr := stop.tripped()
	switch {
	case serviceErr != nil:
		res.Report.Notice = serviceNotice(serviceErr)
		log.Warn("remote scorer unavailable, using standard scores for the rest of the deck",
			zap.String("provider", r.Remote.Name()),
			zap.String("reason", ai.Reason(serviceErr)),
			zap.Int("fallback", res.Report.Fallback),
			zap.Error(serviceErr),
		)
	case res.Report.Fallback > 0:
		res.Report.Notice = fmt.Sprintf("AI scoring failed for %d of %d vehicles; standard match scores are shown for them.",
			res.Report.Fallback, res.Report.Total)
	}
}

// breaker remembers the first service-wide failure of a run.
type breaker struct {
	mu  sync.Mutex
	err error
}

func (b *breaker) trip(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *breaker) tripped() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func serviceNotice(err error) string {
	switch ai.Reason(err) {
	case "timeout", "cancelled":
		return "AI scoring ran out of time; showing standard match scores for the rest of the deck."
	case "rate_limited":
		return "AI scoring is rate limited right now; showing standard match scores."
	case "quota":
		return "AI scoring credits are depleted; showing standard match scores."
	default:
		return "AI scoring is not available; showing standard match scores."
	}
}
