package metrics

import "github.com/prometheus/client_golang/prometheus"

// Key constants are exported primarily for documentation reasons. Typically,
// they will not be used programmatically outside of defining the collectors.

// Keys for onion engine metrics.
const (
	ReadBytesTotalKey          = "onion_read_bytes_total"
	WriteBytesTotalKey         = "onion_write_bytes_total"
	PageReadsTotalKey          = "onion_page_reads_total"
	PagesCopiedTotalKey        = "onion_pages_copied_total"
	CommitsTotalKey            = "onion_commits_total"
	CommitDurationTotalKey     = "onion_commit_duration_seconds_total"
	CommittedPagesTotalKey     = "onion_committed_pages_total"
	RecordDecodeErrorsTotalKey = "onion_record_decode_errors_total"

	// Page sources of the read path.
	SourceRevision  = "revision"
	SourceArchival  = "archival"
	SourceCanonical = "canonical"
	SourceZeroFill  = "zero-fill"

	Fail = "fail"
	Ok   = "ok"
)

// Collectors for onion engine metrics.
var (
	ReadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: ReadBytesTotalKey,
		Help: "Cumulative number of logical bytes read.",
	})
	WriteBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: WriteBytesTotalKey,
		Help: "Cumulative number of logical bytes written.",
	})
	PageReadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: PageReadsTotalKey,
		Help: "Cumulative number of page reads, by resolved source.",
	}, []string{"source"})
	PagesCopiedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: PagesCopiedTotalKey,
		Help: "Cumulative number of pages copied-on-write into the onion file.",
	})
	CommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: CommitsTotalKey,
		Help: "Cumulative number of revision commits.",
	}, []string{"status"})
	CommitDurationTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: CommitDurationTotalKey,
		Help: "Cumulative number of seconds spent committing revisions.",
	})
	CommittedPagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: CommittedPagesTotalKey,
		Help: "Cumulative number of page entries across committed archival indices.",
	})
	RecordDecodeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: RecordDecodeErrorsTotalKey,
		Help: "Cumulative number of on-disk records which failed to decode.",
	})
)

// OnionCollectors lists collectors used by the onion engine.
func OnionCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		ReadBytesTotal,
		WriteBytesTotal,
		PageReadsTotal,
		PagesCopiedTotal,
		CommitsTotal,
		CommitDurationTotal,
		CommittedPagesTotal,
		RecordDecodeErrorsTotal,
	}
}
