package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/krishkalaria12/echo-interview/internal/pkg/envutil"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/temporalx"
	"github.com/krishkalaria12/echo-interview/internal/temporalx/interviews"
)

type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	acts *interviews.Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, acts *interviews.Activities) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if acts == nil {
		return nil, fmt.Errorf("temporal worker missing activities")
	}
	return &Runner{log: log, tc: tc, acts: acts}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}

	cfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	// Local/self-hosted convenience: ensure namespace exists before polling.
	if envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
		baseCtx := ctx
		if baseCtx == nil {
			baseCtx = context.Background()
		}
		if err := temporalx.EnsureNamespace(baseCtx, r.tc, cfg.Namespace, r.log); err != nil && r.log != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60*time.Second)
	backoff := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MS", 250*time.Millisecond)
	backoffMax := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MAX_MS", 5*time.Second)

	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			if ctx != nil {
				go func() {
					<-ctx.Done()
					w.Stop()
				}()
			}
			if r.log != nil {
				r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			}
			return nil
		}

		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			baseCtx := ctx
			if baseCtx == nil {
				baseCtx = context.Background()
			}
			_ = temporalx.EnsureNamespace(baseCtx, r.tc, cfg.Namespace, r.log)
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			var nfe2 *serviceerror.NamespaceNotFound
			if errors.As(startErr, &nfe2) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		if r.log != nil {
			r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		}

		if sleep := clampBackoff(backoff, backoffMax, attempt); sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	w.RegisterWorkflowWithOptions(interviews.SummarizeWorkflow, workflow.RegisterOptions{Name: interviews.SummarizeWorkflowName})
	w.RegisterWorkflowWithOptions(interviews.AnalysisWorkflow, workflow.RegisterOptions{Name: interviews.AnalysisWorkflowName})
	w.RegisterWorkflowWithOptions(interviews.EnrichWorkflow, workflow.RegisterOptions{Name: interviews.EnrichWorkflowName})

	w.RegisterActivityWithOptions(r.acts.FetchTranscript, activity.RegisterOptions{Name: interviews.ActivityFetchTranscript})
	w.RegisterActivityWithOptions(r.acts.ResolveSpeakers, activity.RegisterOptions{Name: interviews.ActivityResolveSpeakers})
	w.RegisterActivityWithOptions(r.acts.Summarize, activity.RegisterOptions{Name: interviews.ActivitySummarize})
	w.RegisterActivityWithOptions(r.acts.SaveSummary, activity.RegisterOptions{Name: interviews.ActivitySaveSummary})
	w.RegisterActivityWithOptions(r.acts.Analyze, activity.RegisterOptions{Name: interviews.ActivityAnalyze})
	w.RegisterActivityWithOptions(r.acts.SaveAnalysis, activity.RegisterOptions{Name: interviews.ActivitySaveAnalysis})
	w.RegisterActivityWithOptions(r.acts.BuildProfile, activity.RegisterOptions{Name: interviews.ActivityBuildProfile})
	w.RegisterActivityWithOptions(r.acts.ApplyProfile, activity.RegisterOptions{Name: interviews.ActivityApplyProfile})
	w.RegisterActivityWithOptions(r.acts.DeadLetter, activity.RegisterOptions{Name: interviews.ActivityDeadLetter})
	return w
}

func clampBackoff(base time.Duration, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if max > 0 && sleep >= max {
			return max
		}
	}
	if max > 0 && sleep > max {
		return max
	}
	return sleep
}
