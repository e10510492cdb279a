package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/creamcroissant/xboard-mobile/internal/panel"
)

// HealthChecker is the part of the panel client the probe needs.
type HealthChecker interface {
	Configured() bool
	Health(ctx context.Context) error
}

// PanelProbeJob 定期探测面板健康接口并更新 panel_up 指标。
type PanelProbeJob struct {
	Panel  HealthChecker
	Logger *slog.Logger
	// Gauge defaults to panel.Up.
	Gauge prometheus.Gauge
}

// NewPanelProbeJob creates the probe. checker should keep its retry policy enabled.
func NewPanelProbeJob(checker HealthChecker, logger *slog.Logger) *PanelProbeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanelProbeJob{Panel: checker, Logger: logger, Gauge: panel.Up}
}

// Name implements Runnable interface.
func (j *PanelProbeJob) Name() string {
	return "panel.probe"
}

// Run implements Runnable interface. An unconfigured panel is reported as down
// without an error.
func (j *PanelProbeJob) Run(ctx context.Context) error {
	if j == nil || j.Panel == nil {
		return fmt.Errorf("panel probe job dependencies not configured / 面板探测任务依赖未配置")
	}
	gauge := j.Gauge
	if gauge == nil {
		gauge = panel.Up
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !j.Panel.Configured() {
		gauge.Set(0)
		logger.Debug("panel probe skipped: panel not configured")
		return nil
	}
	if err := j.Panel.Health(ctx); err != nil {
		gauge.Set(0)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("panel probe: %w", err)
	}
	gauge.Set(1)
	logger.Debug("panel probe ok")
	return nil
}
