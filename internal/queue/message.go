package queue

import (
	"encoding/json"
	"fmt"
)

// Job is the payload the processing worker reads from the queue.
type Job struct {
	DocumentID int64  `json:"documentId"`
	FilePath   string `json:"filePath"`
	UserID     string `json:"userId"`
}

// EncodeJob returns the JSON representation of a job.
func EncodeJob(job Job) ([]byte, error) {
	return json.Marshal(job)
}

// DecodeJob parses a JSON payload into a Job.
func DecodeJob(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
