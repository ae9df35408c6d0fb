package observability

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts the financial lifecycle events the services emit.
// All methods tolerate a nil receiver so tests can leave metrics unwired.
type DomainMetrics struct {
	invoicesIssued   prometheus.Counter
	paymentsRecorded prometheus.Counter
	payoutsPaid      prometheus.Counter
	overdueFlips     prometheus.Counter
}

// NewDomainMetrics registers the lifecycle counters.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		invoicesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_invoices_issued_total",
			Help: "Number of invoices transitioned to issued.",
		}),
		paymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_payments_recorded_total",
			Help: "Number of client payments recorded.",
		}),
		payoutsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_payouts_paid_total",
			Help: "Number of vendor payouts transitioned to paid.",
		}),
		overdueFlips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_invoices_overdue_total",
			Help: "Number of invoices flipped from issued to overdue.",
		}),
	}
	reg.MustRegister(m.invoicesIssued, m.paymentsRecorded, m.payoutsPaid, m.overdueFlips)
	return m
}

func (m *DomainMetrics) InvoiceIssued() {
	if m != nil {
		m.invoicesIssued.Inc()
	}
}

func (m *DomainMetrics) PaymentRecorded() {
	if m != nil {
		m.paymentsRecorded.Inc()
	}
}

func (m *DomainMetrics) PayoutPaid() {
	if m != nil {
		m.payoutsPaid.Inc()
	}
}

func (m *DomainMetrics) OverdueFlipped(n int) {
	if m != nil && n > 0 {
		m.overdueFlips.Add(float64(n))
	}
}
