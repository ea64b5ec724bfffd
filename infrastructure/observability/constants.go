package observability

// Metric name prefixes
const (
	MetricPrefix = "goldennest"
)

// Metric names
const (
	// Approval workflow metrics
	RequestsCreatedTotal   = MetricPrefix + ".approval.requests_created_total"
	VotesTotal             = MetricPrefix + ".approval.votes_total"
	ExecutionsTotal        = MetricPrefix + ".approval.executions_total"
	ExecutionFailuresTotal = MetricPrefix + ".approval.execution_failures_total"

	// Side channel metrics
	SideChannelFailuresTotal = MetricPrefix + ".sidechannel.failures_total"
)

// Label keys
const (
	LabelType     = "type"
	LabelApproved = "approved"
	LabelChannel  = "channel"
)
