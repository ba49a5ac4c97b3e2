package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for admission control.
type Metrics struct {
	WhitelistAdds    prometheus.Counter
	WhitelistRemoves prometheus.Counter
	AdminPromotions  prometheus.Counter
	AuthDenied       prometheus.Counter
	IMEIChecks       *prometheus.CounterVec
}

// New creates and registers all admission metrics.
func New() *Metrics {
	return &Metrics{
		WhitelistAdds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "imeigate_whitelist_adds_total",
			Help: "Total number of whitelist add operations",
		}),
		WhitelistRemoves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "imeigate_whitelist_removes_total",
			Help: "Total number of whitelist remove operations",
		}),
		AdminPromotions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "imeigate_admin_promotions_total",
			Help: "Total number of admin promotions",
		}),
		AuthDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "imeigate_authorization_denied_total",
			Help: "Total number of denied authorization checks",
		}),
		IMEIChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "imeigate_imei_checks_total",
			Help: "Total number of IMEI verification calls by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementWhitelistAdds() {
	if m != nil {
		m.WhitelistAdds.Inc()
	}
}

func (m *Metrics) IncrementWhitelistRemoves() {
	if m != nil {
		m.WhitelistRemoves.Inc()
	}
}

func (m *Metrics) IncrementAdminPromotions() {
	if m != nil {
		m.AdminPromotions.Inc()
	}
}

func (m *Metrics) IncrementAuthDenied() {
	if m != nil {
		m.AuthDenied.Inc()
	}
}

func (m *Metrics) IncrementIMEICheck(outcome string) {
	if m != nil {
		m.IMEIChecks.WithLabelValues(outcome).Inc()
	}
}
