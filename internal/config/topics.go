package config

const (
	// TopicIngestTask is the NSQ topic that announces newly uploaded
	// documents waiting for an ingestion run.
	TopicIngestTask = "ingest.task"
)
