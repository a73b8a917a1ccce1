package workflow

import (
	"context"

	"github.com/Nexitus/KotoSub/internal/stage"
)

// Health reports the readiness of every configured stage plus the queue
// store itself.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.stages)+1)

	if _, err := m.store.Health(ctx); err != nil {
		checks = append(checks, stage.Unhealthy("queue", err.Error()))
	} else {
		checks = append(checks, stage.Healthy("queue"))
	}

	for _, def := range m.stages {
		if def.handler == nil {
			continue
		}
		checks = append(checks, def.handler.HealthCheck(ctx))
	}
	return checks
}

// Ready reports whether every health check passed.
func Ready(checks []stage.Health) bool {
	for _, check := range checks {
		if !check.Ready {
			return false
		}
	}
	return true
}
