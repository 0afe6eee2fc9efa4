package metrics

import (
	"strconv"

	"github.com/ngxial02/srt"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements srt.MetricsSink, registering its collectors on
// the given prometheus.Registerer so an embedding application controls
// where /metrics is mounted.
type PrometheusSink struct {
	sent               *prometheus.CounterVec
	received           *prometheus.CounterVec
	bytesSent          *prometheus.CounterVec
	bytesReceived      *prometheus.CounterVec
	droppedBeforeMerge *prometheus.CounterVec
	discardedDuplicate *prometheus.CounterVec
	recvDrop           *prometheus.CounterVec
	memberState        *prometheus.GaugeVec
}

// New constructs a PrometheusSink and registers every collector with reg.
// Passing prometheus.DefaultRegisterer is the usual choice for a process
// that only runs one of these.
func New(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "packets_sent_total",
			Help:      "Total packets sent per group/link.",
		}, []string{"group", "link"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "packets_received_total",
			Help:      "Total packets received per group/link.",
		}, []string{"group", "link"}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "bytes_sent_total",
			Help:      "Total payload bytes sent per group/link.",
		}, []string{"group", "link"}),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "bytes_received_total",
			Help:      "Total payload bytes received per group/link.",
		}, []string{"group", "link"}),
		droppedBeforeMerge: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "dropped_before_merge_total",
			Help:      "Packets dropped before they reached the receive merge stage, per group.",
		}, []string{"group"}),
		discardedDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "discarded_duplicate_total",
			Help:      "Packets discarded as duplicates of an already-delivered sequence, per group.",
		}, []string{"group"}),
		recvDrop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srt",
			Name:      "recv_drop_total",
			Help:      "Sequence gaps declared lost after the configured wait, per group.",
		}, []string{"group"}),
		memberState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "srt",
			Name:      "member_state",
			Help:      "Current MemberState (0=pending,1=idle,2=running,3=broken) per group/link/direction.",
		}, []string{"group", "link", "direction"}),
	}

	reg.MustRegister(
		s.sent, s.received, s.bytesSent, s.bytesReceived,
		s.droppedBeforeMerge, s.discardedDuplicate, s.recvDrop, s.memberState,
	)
	return s
}

func groupLabel(gid srt.GroupID) string { return strconv.Itoa(int(gid)) }
func linkLabel(lid srt.LinkID) string   { return strconv.Itoa(int(lid)) }

func (s *PrometheusSink) IncSent(gid srt.GroupID, lid srt.LinkID, bytes int) {
	s.sent.WithLabelValues(groupLabel(gid), linkLabel(lid)).Inc()
	s.bytesSent.WithLabelValues(groupLabel(gid), linkLabel(lid)).Add(float64(bytes))
}

func (s *PrometheusSink) IncReceived(gid srt.GroupID, lid srt.LinkID, bytes int) {
	s.received.WithLabelValues(groupLabel(gid), linkLabel(lid)).Inc()
	s.bytesReceived.WithLabelValues(groupLabel(gid), linkLabel(lid)).Add(float64(bytes))
}

func (s *PrometheusSink) IncDroppedBeforeMerge(gid srt.GroupID) {
	s.droppedBeforeMerge.WithLabelValues(groupLabel(gid)).Inc()
}

func (s *PrometheusSink) IncDiscardedDuplicate(gid srt.GroupID) {
	s.discardedDuplicate.WithLabelValues(groupLabel(gid)).Inc()
}

func (s *PrometheusSink) IncRecvDrop(gid srt.GroupID) {
	s.recvDrop.WithLabelValues(groupLabel(gid)).Inc()
}

func (s *PrometheusSink) SetMemberState(gid srt.GroupID, lid srt.LinkID, direction string, state srt.MemberState) {
	s.memberState.WithLabelValues(groupLabel(gid), linkLabel(lid), direction).Set(float64(state))
}
