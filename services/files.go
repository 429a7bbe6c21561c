package services

import (
	"fmt"
	"strings"

	"novascp/types"

	"github.com/samber/lo"
)

// HomeDirectory is the directory the listing pretends to show
const HomeDirectory = "/home/ubuntu"

// FileService interface defines methods for browsing the remote listing
type FileService interface {
	CurrentPath() string
	ListFiles(query string) []types.RemoteFile
	GetFile(id string) (types.RemoteFile, bool)
}

// fileService serves a fixed listing; nothing is read from a real host
type fileService struct {
	path  string
	files []types.RemoteFile
}

// NewFileService creates the file service over the built-in listing
func NewFileService() FileService {
	return NewStaticFileService(HomeDirectory, defaultFiles())
}

// NewStaticFileService creates a file service over the given entries
func NewStaticFileService(path string, files []types.RemoteFile) FileService {
	return &fileService{path: path, files: files}
}

func defaultFiles() []types.RemoteFile {
	return []types.RemoteFile{
		{ID: "f1", Name: "projects", Type: types.FileTypeDirectory, Size: 0, Modified: "2024-03-10 14:22", Permissions: "drwxr-xr-x", Owner: "ubuntu"},
		{ID: "f2", Name: "logs", Type: types.FileTypeDirectory, Size: 0, Modified: "2024-03-12 09:15", Permissions: "drwxr-x---", Owner: "ubuntu"},
		{ID: "f3", Name: ".ssh", Type: types.FileTypeDirectory, Size: 0, Modified: "2024-01-02 18:40", Permissions: "drwx------", Owner: "ubuntu"},
		{ID: "f4", Name: "report.pdf", Type: types.FileTypeFile, Size: 2457600, Modified: "2024-03-11 16:03", Permissions: "-rw-r--r--", Owner: "ubuntu"},
		{ID: "f5", Name: "backup-2024-03.tar.gz", Type: types.FileTypeFile, Size: 1288490189, Modified: "2024-03-01 02:00", Permissions: "-rw-------", Owner: "root"},
		{ID: "f6", Name: "nginx.conf", Type: types.FileTypeFile, Size: 4096, Modified: "2024-02-27 11:48", Permissions: "-rw-r--r--", Owner: "root"},
		{ID: "f7", Name: "deploy.sh", Type: types.FileTypeFile, Size: 1843, Modified: "2024-03-09 20:31", Permissions: "-rwxr-xr-x", Owner: "ubuntu"},
		{ID: "f8", Name: "database_dump.sql", Type: types.FileTypeFile, Size: 52428800, Modified: "2024-03-12 03:30", Permissions: "-rw-r-----", Owner: "postgres"},
		{ID: "f9", Name: "notes.txt", Type: types.FileTypeFile, Size: 612, Modified: "2024-03-05 08:12", Permissions: "-rw-r--r--", Owner: "ubuntu"},
	}
}

// CurrentPath returns the directory being listed
func (fs *fileService) CurrentPath() string {
	return fs.path
}

// ListFiles returns the entries whose name contains query, ignoring case.
// An empty query returns everything. Whitespace is matched literally.
func (fs *fileService) ListFiles(query string) []types.RemoteFile {
	query = strings.ToLower(query)
	return lo.Filter(fs.files, func(f types.RemoteFile, _ int) bool {
		return strings.Contains(strings.ToLower(f.Name), query)
	})
}

// GetFile returns the entry with the given ID
func (fs *fileService) GetFile(id string) (types.RemoteFile, bool) {
	return lo.Find(fs.files, func(f types.RemoteFile) bool {
		return f.ID == id
	})
}

// FormatSize renders a byte count the way the file browser shows it
func FormatSize(bytes int64) string {
	if bytes == 0 {
		return "--"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
