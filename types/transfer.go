package types

import "time"

// Direction tells which way a transfer moves data
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionUpload || d == DirectionDownload
}

// TransferStatus represents the current status of a transfer job
type TransferStatus string

const (
	TransferStatusQueued       TransferStatus = "queued"
	TransferStatusTransferring TransferStatus = "transferring"
	TransferStatusCompleted    TransferStatus = "completed"
	TransferStatusError        TransferStatus = "error"
)

// Terminal reports whether no further mutation can happen in this status
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusError
}

// SpeedDone is shown once a transfer has completed
const SpeedDone = "Done"

// SpeedIdle is the placeholder speed of a freshly created transfer
const SpeedIdle = "0 KB/s"

// TransferJob represents one simulated file transfer
type TransferJob struct {
	ID          string         `json:"id"`
	FileName    string         `json:"fileName"`
	Direction   Direction      `json:"direction"`
	Progress    int            `json:"progress"`
	Speed       string         `json:"speed"`
	Status      TransferStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	// Revision increases with every change to the transfer
	Revision uint64 `json:"revision"`
}

// Clone returns a copy that shares no memory with j
func (j *TransferJob) Clone() TransferJob {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
