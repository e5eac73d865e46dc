// Package metrics holds the domain counters exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the application counters. Construct with New.
type Metrics struct {
	OTPRequests     *prometheus.CounterVec
	Sessions        *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
	UploadRollbacks *prometheus.CounterVec
	OrphanedObjects prometheus.Counter
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		OTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_otp_requests_total",
			Help: "OTP issuance attempts by result.",
		}, []string{"result"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_sessions_total",
			Help: "Session creations and deletions by result.",
		}, []string{"op", "result"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_uploads_total",
			Help: "File uploads by result.",
		}, []string{"result"}),
		UploadRollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_upload_rollbacks_total",
			Help: "Storage objects deleted after a failed metadata write, by result.",
		}, []string{"result"}),
		OrphanedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filevault_orphaned_objects_total",
			Help: "Storage objects left behind after their file document was deleted.",
		}),
	}
	for _, c := range []prometheus.Collector{m.OTPRequests, m.Sessions, m.Uploads, m.UploadRollbacks, m.OrphanedObjects} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
