package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics tracks issuance and distribution activity on the share ledger.
type VaultMetrics struct {
	sharesIssued     *prometheus.CounterVec
	unitsIssued      prometheus.Gauge
	valueLocked      prometheus.Gauge
	yieldDistributed prometheus.Counter
	roundingDust     prometheus.Counter
	yieldClaimed     prometheus.Counter
	withdrawals      prometheus.Counter
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = newVaultMetrics()
		prometheus.MustRegister(
			vaultRegistry.sharesIssued,
			vaultRegistry.unitsIssued,
			vaultRegistry.valueLocked,
			vaultRegistry.yieldDistributed,
			vaultRegistry.roundingDust,
			vaultRegistry.yieldClaimed,
			vaultRegistry.withdrawals,
		)
	})
	return vaultRegistry
}

func newVaultMetrics() *VaultMetrics {
	return &VaultMetrics{
		sharesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_shares_issued_total",
			Help: "Count of shares issued by kind.",
		}, []string{"kind"}),
		unitsIssued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_units_issued",
			Help: "Number of pricing positions consumed on the curve.",
		}),
		valueLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_value_locked",
			Help: "Total deposit value currently held by the ledger.",
		}),
		yieldDistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_yield_distributed_total",
			Help: "Cumulative yield credited to share holders.",
		}),
		roundingDust: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_rounding_dust_total",
			Help: "Cumulative distribution remainder lost to truncation.",
		}),
		yieldClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_yield_claimed_total",
			Help: "Cumulative yield paid out through claims.",
		}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_withdrawals_total",
			Help: "Count of shares withdrawn from the ledger.",
		}),
	}
}

func (m *VaultMetrics) ObserveShareIssued(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.sharesIssued.WithLabelValues(kind).Inc()
}

func (m *VaultMetrics) SetUnitsIssued(units uint64) {
	if m == nil {
		return
	}
	m.unitsIssued.Set(float64(units))
}

func (m *VaultMetrics) SetValueLocked(value float64) {
	if m == nil {
		return
	}
	m.valueLocked.Set(value)
}

func (m *VaultMetrics) ObserveDistribution(credited, dust float64) {
	if m == nil {
		return
	}
	m.yieldDistributed.Add(credited)
	m.roundingDust.Add(dust)
}

func (m *VaultMetrics) ObserveClaim(amount float64) {
	if m == nil {
		return
	}
	m.yieldClaimed.Add(amount)
}

func (m *VaultMetrics) ObserveWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}
