// Package resolver turns Spotify track links into YouTube links by running spotdl
// and scanning its console output.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tubelink/internal/core"
	"tubelink/pkg/musiclink"
)

const (
	invocationPrimary  = "primary"
	invocationFallback = "fallback"
	invocationVersion  = "version"

	// versionTimeout bounds the --version probe.
	versionTimeout = 10 * time.Second
	// outputExcerptLen is how much of the tool output goes into debug logs.
	outputExcerptLen = 300
)

// Recorder receives resolution telemetry.
type Recorder interface {
	RecordAttempt(invocation string, outcome string)
	RecordLookup(outcome string, duration time.Duration)
	SetLookupsInFlight(delta int)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, string) {}

func (nopRecorder) RecordLookup(string, time.Duration) {}

func (nopRecorder) SetLookupsInFlight(int) {}

// Resolver runs the lookup tool under process and total time budgets.
type Resolver struct {
	config   core.ResolverConfig
	runner   Runner
	recorder Recorder
	logger   *zap.Logger
	slots    *semaphore.Weighted
}

// New creates a Resolver. A nil recorder disables telemetry.
func New(config core.ResolverConfig, runner Runner, recorder Recorder, logger *zap.Logger) *Resolver {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	r := &Resolver{
		config:   config,
		runner:   runner,
		recorder: recorder,
		logger:   logger,
	}
	if config.MaxConcurrent > 0 {
		r.slots = semaphore.NewWeighted(int64(config.MaxConcurrent))
	}
	return r
}

// ResolveWithBudget runs Resolve in the background and waits at most the total timeout.
// When the budget runs out the result is OutcomeTimedOut and the running tool is killed.
func (r *Resolver) ResolveWithBudget(ctx context.Context, sourceURL string) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.config.TotalTimeout)
	defer cancel()

	if r.slots != nil {
		if err := r.slots.Acquire(ctx, 1); err != nil {
			r.logger.Warn("No lookup slot available within budget",
				zap.String("source_url", sourceURL),
				zap.Error(err))
			return r.finish(sourceURL, Result{Outcome: OutcomeTimedOut, Duration: time.Since(start)})
		}
	}

	done := make(chan Result, 1)
	r.recorder.SetLookupsInFlight(1)
	go func() {
		result := r.Resolve(ctx, sourceURL)
		if r.slots != nil {
			r.slots.Release(1)
		}
		r.recorder.SetLookupsInFlight(-1)
		done <- result
	}()

	select {
	case result := <-done:
		result.Duration = time.Since(start)
		return r.finish(sourceURL, result)
	case <-ctx.Done():
		r.logger.Warn("Total lookup budget exceeded",
			zap.String("source_url", sourceURL),
			zap.Duration("total_timeout", r.config.TotalTimeout),
			zap.Error(ctx.Err()))
		return r.finish(sourceURL, Result{Outcome: OutcomeTimedOut, Duration: time.Since(start)})
	}
}

func (r *Resolver) finish(sourceURL string, result Result) Result {
	r.recorder.RecordLookup(result.Outcome.String(), result.Duration)

	fields := []zap.Field{
		zap.String("source_url", sourceURL),
		zap.String("outcome", result.Outcome.String()),
		zap.Int("attempts", result.Attempts),
		zap.Duration("duration", result.Duration),
	}
	if result.Found() {
		fields = append(fields, zap.String("youtube_url", result.URL))
	}
	r.logger.Info("Lookup finished", fields...)

	return result
}

// Resolve runs the primary invocation and, if it yields no destination URL, the shell fallback.
// It never returns an error: every failure is folded into the Result's Outcome.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) Result {
	start := time.Now()

	primary := r.attempt(ctx, r.primaryInvocation(sourceURL))
	if primary.Outcome == OutcomeFound {
		primary.Attempts = 1
		primary.Duration = time.Since(start)
		return primary
	}

	if ctx.Err() != nil {
		return Result{Outcome: OutcomeTimedOut, Attempts: 1, Duration: time.Since(start)}
	}

	r.logger.Info("Primary lookup found nothing, trying shell fallback",
		zap.String("source_url", sourceURL),
		zap.String("primary_outcome", primary.Outcome.String()))

	fallback := r.attempt(ctx, r.fallbackInvocation(sourceURL))
	if fallback.Outcome == OutcomeFound {
		fallback.Attempts = 2
		fallback.Duration = time.Since(start)
		return fallback
	}

	return Result{
		Outcome:  worst(primary.Outcome, fallback.Outcome),
		Attempts: 2,
		Duration: time.Since(start),
	}
}

// attempt runs one invocation under the process timeout and scans its output.
func (r *Resolver) attempt(ctx context.Context, inv Invocation) Result {
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.ProcessTimeout)
	defer cancel()

	start := time.Now()
	r.logger.Debug("Running lookup tool",
		zap.String("invocation", inv.Name),
		zap.String("path", inv.Path),
		zap.Strings("args", inv.Args))

	out, err := r.runner.Run(attemptCtx, inv)
	result := r.classify(attemptCtx, inv, out, err)

	r.recorder.RecordAttempt(inv.Name, result.Outcome.String())
	r.logger.Debug("Lookup tool finished",
		zap.String("invocation", inv.Name),
		zap.String("outcome", result.Outcome.String()),
		zap.Int("exit_code", out.ExitCode),
		zap.Int("output_len", len(out.Text)),
		zap.Duration("duration", time.Since(start)))

	return result
}

// classify turns one run into an attempt outcome. Only a run that was interrupted by its
// deadline counts as a timeout; a run that exited on its own is scanned even if the deadline
// passed in the meantime.
func (r *Resolver) classify(ctx context.Context, inv Invocation, out ProcessOutput, err error) Result {
	if err != nil && ctx.Err() != nil {
		r.logger.Warn("Lookup tool timed out",
			zap.String("invocation", inv.Name),
			zap.Duration("process_timeout", r.config.ProcessTimeout),
			zap.Error(err))
		return Result{Outcome: OutcomeTimedOut}
	}

	head, tail := excerpt(out.Text, outputExcerptLen)
	r.logger.Debug("Lookup tool output",
		zap.String("invocation", inv.Name),
		zap.String("head", head),
		zap.String("tail", tail))

	if url, ok := matchDestination(out.Text); ok {
		fields := []zap.Field{zap.String("invocation", inv.Name), zap.String("youtube_url", url)}
		if videoID, idErr := musiclink.YouTubeVideoID(url); idErr == nil {
			fields = append(fields, zap.String("video_id", videoID))
		}
		r.logger.Debug("Destination URL matched", fields...)
		return Result{Outcome: OutcomeFound, URL: url}
	}

	if d := diagnose(out.Text); d.any() {
		r.logger.Warn("Lookup tool reported errors",
			append([]zap.Field{zap.String("invocation", inv.Name)}, d.fields()...)...)
	}

	if err != nil && !ranWithOutput(out, err) {
		r.logger.Error("Lookup tool could not be run",
			zap.String("invocation", inv.Name),
			zap.String("path", inv.Path),
			zap.Error(err))
		return Result{Outcome: OutcomeExecutionFailed}
	}

	r.logger.Info("No YouTube URL in tool output",
		zap.String("invocation", inv.Name),
		zap.Int("exit_code", out.ExitCode))
	return Result{Outcome: OutcomeNotFound}
}

// ranWithOutput reports whether a failed run still produced diagnostics worth trusting as "not found".
func ranWithOutput(out ProcessOutput, err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && strings.TrimSpace(out.Text) != ""
}

func (r *Resolver) primaryInvocation(sourceURL string) Invocation {
	return Invocation{
		Name: invocationPrimary,
		Path: r.config.ToolPath,
		Args: []string{"download", sourceURL, "--output", "-", "--print-errors", "--debug"},
	}
}

func (r *Resolver) fallbackInvocation(sourceURL string) Invocation {
	return Invocation{
		Name: invocationFallback,
		Path: r.config.ShellPath,
		Args: []string{"-c", fmt.Sprintf("%s download %s", shellQuote(r.config.ToolPath), shellQuote(sourceURL))},
	}
}

// shellQuote wraps s in single quotes so the shell passes it through verbatim.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ToolVersion returns the lookup tool's --version output.
func (r *Resolver) ToolVersion(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := r.runner.Run(ctx, Invocation{
		Name: invocationVersion,
		Path: r.config.ToolPath,
		Args: []string{"--version"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", r.config.ToolPath, err)
	}
	return strings.TrimSpace(out.Text), nil
}

// CheckTool reports whether the lookup tool can be found.
func (r *Resolver) CheckTool() error {
	if _, err := exec.LookPath(r.config.ToolPath); err != nil {
		return fmt.Errorf("lookup tool unavailable: %w", err)
	}
	return nil
}
