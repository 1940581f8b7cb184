package constants

// EnrichmentStatus tracks one enrichment sub-operation of a single pipeline run.
type EnrichmentStatus string

const (
	EnrichmentNotAttempted EnrichmentStatus = "NOT_ATTEMPTED"
	EnrichmentRequested    EnrichmentStatus = "REQUESTED"
	EnrichmentSucceeded    EnrichmentStatus = "SUCCEEDED"
	EnrichmentDegraded     EnrichmentStatus = "DEGRADED" // fallback substituted
)

// JobStatus is the canonical status for batch jobs (store these exact strings).
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED" // terminal failure
)
