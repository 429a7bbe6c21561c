package types

import "time"

// ProgressMessage represents a WebSocket progress update message
type ProgressMessage struct {
	JobID     string    `json:"jobId"`
	Type      string    `json:"type"`              // "progress", "status", "complete", "error", "removed"
	Progress  int       `json:"progress"`          // 0-100 percentage
	Status    string    `json:"status"`            // current job status
	FileName  string    `json:"fileName"`          // file being transferred
	Direction string    `json:"direction"`         // "upload" or "download"
	Speed     string    `json:"speed"`             // speed like "2.1 MB/s"
	Message   string    `json:"message,omitempty"` // status or error messages
	Timestamp time.Time `json:"timestamp"`         // when the update occurred
	Revision  uint64    `json:"revision"`          // revision of the job this describes
}
