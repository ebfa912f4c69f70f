// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// コントローラーやワーカーから利用する。
type Recorder interface {
	RecordSessionStarted()
	RecordSessionClosed()
	RecordReminderSent()
	RecordReport(mode string)
	RecordExport()
	RecordUpdateReceived()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionsStarted prometheus.Counter
	sessionsClosed  prometheus.Counter
	remindersSent   prometheus.Counter
	reports         *prometheus.CounterVec
	exports         prometheus.Counter
	updatesReceived prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kintai_sessions_started_total",
			Help: "開始された勤務セッションの合計数",
		}),
		sessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kintai_sessions_closed_total",
			Help: "終了した勤務セッションの合計数",
		}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kintai_overtime_reminders_sent_total",
			Help: "送信された長時間勤務リマインダーの合計数",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kintai_reports_generated_total",
			Help: "生成された月次レポートの合計数（モード別）",
		}, []string{"mode"}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kintai_exports_generated_total",
			Help: "生成された管理者エクスポートの合計数",
		}),
		updatesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kintai_updates_received_total",
			Help: "受信したチャット更新の合計数",
		}),
	}

	reg.MustRegister(
		c.sessionsStarted,
		c.sessionsClosed,
		c.remindersSent,
		c.reports,
		c.exports,
		c.updatesReceived,
	)

	return c
}

// RecordSessionStarted は勤務セッション開始を記録する。
func (c *Collector) RecordSessionStarted() {
	c.sessionsStarted.Inc()
}

// RecordSessionClosed は勤務セッション終了を記録する。
func (c *Collector) RecordSessionClosed() {
	c.sessionsClosed.Inc()
}

// RecordReminderSent はリマインダー送信を記録する。
func (c *Collector) RecordReminderSent() {
	c.remindersSent.Inc()
}

// RecordReport はレポート生成をモード別に記録する。
// modeは "current" | "last" | "all"。
func (c *Collector) RecordReport(mode string) {
	c.reports.WithLabelValues(mode).Inc()
}

// RecordExport は管理者エクスポート生成を記録する。
func (c *Collector) RecordExport() {
	c.exports.Inc()
}

// RecordUpdateReceived はチャット更新の受信を記録する。
func (c *Collector) RecordUpdateReceived() {
	c.updatesReceived.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
