package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RowsIngested             prometheus.Counter
	RowsRejected             prometheus.Counter
	DuplicatesSkipped        prometheus.Counter
	BatchesSubmitted         prometheus.Counter
	RemoteCallFailures       prometheus.Counter
	RecordsConfirmed         prometheus.Counter
	RecordsRejected          prometheus.Counter
	ReconciliationMismatches prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RowsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_rows_ingested_total",
			Help: "Total number of source rows read",
		}),
		RowsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_rows_rejected_total",
			Help: "Total number of source rows excluded by validation",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_duplicates_skipped_total",
			Help: "Total number of already-known identity keys skipped before submission",
		}),
		BatchesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_batches_submitted_total",
			Help: "Total number of remote submission calls issued",
		}),
		RemoteCallFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_remote_call_failures_total",
			Help: "Total number of remote submission calls that failed",
		}),
		RecordsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_records_confirmed_total",
			Help: "Total number of records the remote service accepted",
		}),
		RecordsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_records_rejected_total",
			Help: "Total number of records resolved as rejected",
		}),
		ReconciliationMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stayreg_reconciliation_mismatches_total",
			Help: "Total number of submitted records absent from their confirmation document",
		}),
	}
}

func (m *Metrics) AddRowsIngested(n int) {
	m.RowsIngested.Add(float64(n))
}

func (m *Metrics) AddRowsRejected(n int) {
	m.RowsRejected.Add(float64(n))
}

func (m *Metrics) IncrementDuplicatesSkipped() {
	m.DuplicatesSkipped.Inc()
}

func (m *Metrics) IncrementBatchesSubmitted() {
	m.BatchesSubmitted.Inc()
}

func (m *Metrics) IncrementRemoteCallFailures() {
	m.RemoteCallFailures.Inc()
}

func (m *Metrics) IncrementRecordsConfirmed() {
	m.RecordsConfirmed.Inc()
}

func (m *Metrics) IncrementRecordsRejected() {
	m.RecordsRejected.Inc()
}

func (m *Metrics) IncrementReconciliationMismatches() {
	m.ReconciliationMismatches.Inc()
}
