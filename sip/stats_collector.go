package sip

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector exposes a [StatsRecorder] as a Prometheus collector.
// Every Collect builds constant metrics from a fresh report, so the
// collector itself holds no state.
type StatsCollector struct {
	rcdr *StatsRecorder

	reqsReceived *prometheus.Desc
	reqsSent     *prometheus.Desc
	ressReceived *prometheus.Desc
	ressSent     *prometheus.Desc
	rttAvg       *prometheus.Desc
	rttNum       *prometheus.Desc
	transacts    *prometheus.Desc
	transactsTot *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector creates a collector reporting the recorder's
// statistics under the given namespace, "sip" when empty.
func NewStatsCollector(rcdr *StatsRecorder, namespace string) *StatsCollector {
	if namespace == "" {
		namespace = "sip"
	}
	transpLabels := []string{"proto", "local_addr"}
	return &StatsCollector{
		rcdr: rcdr,
		reqsReceived: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "requests_received_total"),
			"Number of received SIP requests.", transpLabels, nil),
		reqsSent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "requests_sent_total"),
			"Number of sent SIP requests.", transpLabels, nil),
		ressReceived: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "responses_received_total"),
			"Number of received SIP responses.", transpLabels, nil),
		ressSent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "responses_sent_total"),
			"Number of sent SIP responses.", transpLabels, nil),
		rttAvg: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "rtt_seconds_avg"),
			"Average SIP round-trip time.", transpLabels, nil),
		rttNum: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transport", "rtt_measurements_total"),
			"Number of SIP round-trip measurements.", transpLabels, nil),
		transacts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "transactions"),
			"Number of active SIP transactions.", []string{"kind"}, nil),
		transactsTot: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "transactions_created_total"),
			"Number of created SIP transactions.", []string{"kind"}, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reqsReceived
	ch <- c.reqsSent
	ch <- c.ressReceived
	ch <- c.ressSent
	ch <- c.rttAvg
	ch <- c.rttNum
	ch <- c.transacts
	ch <- c.transactsTot
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	report := c.rcdr.Report()

	for _, ts := range report.Transports {
		labels := []string{string(ts.Proto), ts.LocalAddr}
		ch <- prometheus.MustNewConstMetric(c.reqsReceived, prometheus.CounterValue,
			float64(ts.RequestsReceived), labels...)
		ch <- prometheus.MustNewConstMetric(c.reqsSent, prometheus.CounterValue,
			float64(ts.RequestsSent), labels...)
		ch <- prometheus.MustNewConstMetric(c.ressReceived, prometheus.CounterValue,
			float64(ts.ResponsesReceived), labels...)
		ch <- prometheus.MustNewConstMetric(c.ressSent, prometheus.CounterValue,
			float64(ts.ResponsesSent), labels...)
		ch <- prometheus.MustNewConstMetric(c.rttAvg, prometheus.GaugeValue,
			ts.AvgRTT.Seconds(), labels...)
		ch <- prometheus.MustNewConstMetric(c.rttNum, prometheus.CounterValue,
			float64(ts.NumRTT), labels...)
	}

	txs := report.Transactions
	for _, m := range []struct {
		kind   string
		active uint64
		total  uint64
	}{
		{"invite_client", txs.InviteClientTransactions, txs.InviteClientTransactionsTotal},
		{"non_invite_client", txs.NonInviteClientTransactions, txs.NonInviteClientTransactionsTotal},
		{"invite_server", txs.InviteServerTransactions, txs.InviteServerTransactionsTotal},
		{"non_invite_server", txs.NonInviteServerTransactions, txs.NonInviteServerTransactionsTotal},
	} {
		ch <- prometheus.MustNewConstMetric(c.transacts, prometheus.GaugeValue,
			float64(m.active), m.kind)
		ch <- prometheus.MustNewConstMetric(c.transactsTot, prometheus.CounterValue,
			float64(m.total), m.kind)
	}
}
