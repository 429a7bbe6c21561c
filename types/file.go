package types

// FileType distinguishes files from directories in a remote listing
type FileType string

const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
)

// RemoteFile is one entry of a remote directory listing
type RemoteFile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        FileType `json:"type"`
	Size        int64    `json:"size"`
	Modified    string   `json:"modified"`
	Permissions string   `json:"permissions"`
	Owner       string   `json:"owner"`
}
