package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// EngineConfig carries every knob the engine needs; the engine reads no
// ambient configuration.
type EngineConfig struct {
	BatchSize      int
	MaxRetries     int
	RequestTimeout time.Duration
	Temperature    float64
	MaxTokens      int
}

// ProgressFunc is called before each dispatched unit with the unit index,
// the current estimate of total units, and the batch size in effect.
type ProgressFunc func(batchIndex, totalBatches, batchSize int)

// Engine batches records through a completion provider, shrinking the
// batch size on context overflows and malformed responses, and merges
// the per-batch results into one aggregate. Individual batch failures
// degrade to placeholders; only run-level preconditions abort a run.
type Engine struct {
	provider  completionProvider
	cfg       EngineConfig
	policy    retryPolicy
	estimator *tokenEstimator
	progress  ProgressFunc
}

func NewEngine(provider completionProvider, cfg EngineConfig) *Engine {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Engine{
		provider:  provider,
		cfg:       cfg,
		policy:    defaultRetryPolicy(cfg.MaxRetries),
		estimator: newTokenEstimator(),
		progress: func(batchIndex, totalBatches, batchSize int) {
			log.Printf("engine batch=%d/%d size=%d", batchIndex+1, totalBatches, batchSize)
		},
	}
}

// SetProgress replaces the default logging progress hook.
func (e *Engine) SetProgress(fn ProgressFunc) {
	if fn != nil {
		e.progress = fn
	}
}

// partitionRecords splits records into order-preserving batches of at
// most size records each; the final batch may be shorter. Concatenating
// the batches reproduces the input exactly.
func partitionRecords(records []Record, size int) [][]Record {
	if size < 1 {
		size = 1
	}
	var batches [][]Record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}

func shrinkSize(size int) int {
	size /= 2
	if size < 1 {
		size = 1
	}
	return size
}

// Analyze runs the full batch loop over records. The cursor over records
// advances only when a unit is accepted or written off as a placeholder;
// a size reduction re-dispatches the same offset at the smaller size.
// The batch size never grows back within a run.
func (e *Engine) Analyze(ctx context.Context, records []Record, comments map[int64][]Comment, productArea string) (*AggregateResult, error) {
	if err := e.provider.CheckModel(ctx); err != nil {
		return nil, fmt.Errorf("model %q unavailable on provider %s: %w", e.provider.Model(), e.provider.Name(), err)
	}

	size := e.cfg.BatchSize
	remaining := records
	var results []BatchResult
	batchIndex := 0

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis canceled: %w", err)
		}

		// Re-partition the remaining work at the current size. Only the
		// first unit is dispatched before the size can change again, so
		// later batches always reflect the latest size.
		unit := partitionRecords(remaining, size)[0]
		totalEstimate := batchIndex + (len(remaining)+size-1)/size
		e.progress(batchIndex, totalEstimate, size)

		result, outcome := e.processUnit(ctx, unit, comments, productArea, size)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis canceled: %w", err)
		}

		if outcome == outcomeShrink {
			size = shrinkSize(size)
			log.Printf("engine shrink batch=%d new_size=%d", batchIndex, size)
			continue
		}
		results = append(results, result)
		remaining = remaining[len(unit):]
		batchIndex++
	}

	agg := mergeBatchResults(results)
	log.Printf("engine done batches=%d analyzed=%d relevant=%d errors=%d",
		len(results), agg.TotalAnalyzed, agg.RelevantFound, agg.ProcessingErrors)
	return agg, nil
}

type unitOutcome int

const (
	outcomeAccept unitOutcome = iota
	outcomePlaceholder
	outcomeShrink
)

// processUnit runs one dispatch/validate round for a unit at the current
// size and decides its fate. Transition priority: context overflows
// shrink while size > 1; validation failures shrink above size 2 and get
// one simplified-prompt attempt at size <= 2; any other dispatch error
// shrinks above size 2 and becomes a placeholder at or below it.
func (e *Engine) processUnit(ctx context.Context, unit []Record, comments map[int64][]Comment, productArea string, size int) (BatchResult, unitOutcome) {
	raw, err := e.dispatch(ctx, buildAnalysisPrompt(unit, comments, productArea))
	if err != nil {
		if isContextExceeded(err) && size > 1 {
			return BatchResult{}, outcomeShrink
		}
		if size <= 2 {
			log.Printf("engine unit failed records=%d err=%v", len(unit), err)
			return placeholderResult(unit), outcomePlaceholder
		}
		return BatchResult{}, outcomeShrink
	}

	result, parseErr := parseBatchResult(raw)
	if parseErr == nil {
		return acceptResult(result, unit), outcomeAccept
	}
	if size > 2 {
		return BatchResult{}, outcomeShrink
	}

	// Last chance for a small unit: one simplified-prompt round before
	// the placeholder.
	log.Printf("engine fallback simplified records=%d parse_err=%v", len(unit), parseErr)
	raw, err = e.dispatch(ctx, buildSimplifiedPrompt(unit, comments, productArea))
	if err == nil {
		if result, parseErr = parseBatchResult(raw); parseErr == nil {
			return acceptResult(result, unit), outcomeAccept
		}
	}
	log.Printf("engine unit failed records=%d err=%v parse_err=%v", len(unit), err, parseErr)
	return placeholderResult(unit), outcomePlaceholder
}

// dispatch sends one prompt through the bounded-retry helper. Only
// transient classifications are retried; everything else surfaces to
// processUnit immediately.
func (e *Engine) dispatch(ctx context.Context, p prompt) (string, error) {
	if n := e.estimator.estimate(p.System + p.User); n > 0 {
		log.Printf("engine dispatch est_tokens=%d", n)
	}
	return retryCompletion(ctx, e.policy, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
		return e.provider.Complete(callCtx, completionRequest{
			System:      p.System,
			User:        p.User,
			Temperature: e.cfg.Temperature,
			MaxTokens:   e.cfg.MaxTokens,
			JSONOnly:    true,
		})
	})
}

// acceptResult pins the accounting fields to the unit that was actually
// sent, so aggregate totals stay exact even when the model miscounts.
func acceptResult(result BatchResult, unit []Record) BatchResult {
	result.TotalAnalyzed = len(unit)
	result.RelevantFound = len(result.Findings)
	return result
}

func placeholderResult(unit []Record) BatchResult {
	return BatchResult{
		Findings:        []AnalyzedFinding{},
		TotalAnalyzed:   len(unit),
		ProcessingError: true,
	}
}

// mergeBatchResults combines per-batch results in order. Categories are
// counted one vote per batch per category; ties keep first-seen order.
// The failure fields are only populated when something actually failed.
func mergeBatchResults(results []BatchResult) *AggregateResult {
	agg := &AggregateResult{}
	counts := make(map[string]int)
	var firstSeen []string

	for _, br := range results {
		agg.Findings = append(agg.Findings, br.Findings...)
		agg.TotalAnalyzed += br.TotalAnalyzed
		if br.ProcessingError {
			agg.ProcessingErrors++
		}
		seen := make(map[string]bool)
		for _, cat := range br.TopCategories {
			cat = strings.TrimSpace(cat)
			if cat == "" || seen[cat] {
				continue
			}
			seen[cat] = true
			if counts[cat] == 0 {
				firstSeen = append(firstSeen, cat)
			}
			counts[cat]++
		}
	}
	agg.RelevantFound = len(agg.Findings)

	sort.SliceStable(firstSeen, func(i, j int) bool {
		return counts[firstSeen[i]] > counts[firstSeen[j]]
	})
	if len(firstSeen) > 5 {
		firstSeen = firstSeen[:5]
	}
	agg.TopCategories = firstSeen

	if agg.ProcessingErrors > 0 {
		agg.TotalBatches = len(results)
	}
	return agg
}
