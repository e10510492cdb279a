// 文件路径: internal/job/scheduler.go
// 模块说明: cron 调度器封装，带超时、panic 恢复和执行指标。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

// Runnable 表示由调度器触发的后台任务。
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

var runsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "xmobile",
		Subsystem: "job",
		Name:      "runs_total",
		Help:      "Background job executions by job and result.",
	},
	[]string{"job", "result"},
)

// Scheduler 封装 cron，并提供日志与优雅停机。
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	mu      sync.Mutex
	started bool
}

const defaultJobTimeout = 2 * time.Minute

// NewScheduler 构建支持秒与自然描述（@every 1m）的调度器。
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return &Scheduler{cron: c, logger: logger, timeout: defaultJobTimeout}
}

// Register 绑定 cron 表达式与任务。
func (s *Scheduler) Register(spec string, runnable Runnable) (cron.EntryID, error) {
	if runnable == nil {
		return 0, fmt.Errorf("scheduler: runnable is required / runnable 不能为空")
	}
	if spec == "" {
		return 0, fmt.Errorf("scheduler: spec is required / spec 不能为空")
	}
	entryID, err := s.cron.AddFunc(spec, func() { _ = s.RunNow(context.Background(), runnable) })
	if err != nil {
		return 0, fmt.Errorf("scheduler: %s: %w", runnable.Name(), err)
	}
	s.logger.Info("job registered", "job", runnable.Name(), "spec", spec)
	return entryID, nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start 启动调度器并执行任务。
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop 停止调度器；返回的 context 在执行中的任务结束后关闭。
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return context.Background()
	}
	s.started = false
	return s.cron.Stop()
}

// RunNow executes runnable once with the job timeout and the same logging/metrics
// as a scheduled run. Panics are converted into errors.
func (s *Scheduler) RunNow(ctx context.Context, runnable Runnable) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", runnable.Name(), r)
		}
		if err != nil {
			runsTotal.WithLabelValues(runnable.Name(), "error").Inc()
			s.logger.Error("job failed", "job", runnable.Name(), "error", err, "elapsed", time.Since(start))
			return
		}
		runsTotal.WithLabelValues(runnable.Name(), "ok").Inc()
		s.logger.Debug("job completed", "job", runnable.Name(), "elapsed", time.Since(start))
	}()
	return runnable.Run(ctx)
}
