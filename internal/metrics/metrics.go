// Package metrics collects Prometheus counters for authentication outcomes
// and exposes them for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.  Failures use the domain error code instead.
const ResultSuccess = "success"

// AuthRecorder is what the services report to.
type AuthRecorder interface {
	RecordLogin(result string)
	RecordRefresh(result string)
	RecordLogout()
	RecordSignUp(result string)
}

// Collector records auth metrics into Prometheus.
type Collector struct {
	login   *prometheus.CounterVec
	refresh *prometheus.CounterVec
	signUp  *prometheus.CounterVec
	logout  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Refresh token rotations by result.",
		}, []string{"result"}),
		signUp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_signup_total",
			Help: "User creations by result.",
		}, []string{"result"}),
		logout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_logout_total",
			Help: "Logout requests.",
		}),
	}

	reg.MustRegister(c.login, c.refresh, c.signUp, c.logout)
	return c
}

func (c *Collector) RecordLogin(result string)   { c.login.WithLabelValues(result).Inc() }
func (c *Collector) RecordRefresh(result string) { c.refresh.WithLabelValues(result).Inc() }
func (c *Collector) RecordSignUp(result string)  { c.signUp.WithLabelValues(result).Inc() }
func (c *Collector) RecordLogout()               { c.logout.Inc() }

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLogin(string)   {}
func (Nop) RecordRefresh(string) {}
func (Nop) RecordLogout()        {}
func (Nop) RecordSignUp(string)  {}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
