package metrics

import (
	"time"

	"github.com/replykit/replykit/internal/observability"
)

// Reply metric names
const (
	ReplyOutcomesTotal  = "reply_outcomes_total"
	ReplyDurationMs     = "reply_duration_ms"
	ReplyAttemptsTotal  = "reply_attempts_total"
	ReplyRetriesTotal   = "reply_retries_total"
	ServerStartTimeName = "app_server_start_time_seconds"
)

// RecordReply records a finished reply by outcome kind.
func RecordReply(kind string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{"kind": kind}
	_ = observability.TelemetrySystem.Counter(ReplyOutcomesTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(ReplyDurationMs, duration, labels)
}

// RecordAttempt counts one generateContent call.
func RecordAttempt() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(ReplyAttemptsTotal, 1, nil)
	}
}

// RecordRetry counts a retry scheduled under policy.
func RecordRetry(policy string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ReplyRetriesTotal,
			1,
			map[string]string{"policy": policy},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTimeName, float64(timestamp), nil)
	}
}
