package model

// IngestJob is the queued unit of background ingestion: text already extracted from an upload.
type IngestJob struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Text   string `json:"text"`
}
