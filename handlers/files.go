package handlers

import (
	"net/http"

	"novascp/services"
	"novascp/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// FileHandler handles remote file listing endpoints
type FileHandler struct {
	fileService services.FileService
}

// NewFileHandler creates a new file handler
func NewFileHandler(fs services.FileService) *FileHandler {
	return &FileHandler{
		fileService: fs,
	}
}

// fileEntry is a listing entry with its size already formatted for display
type fileEntry struct {
	types.RemoteFile
	DisplaySize string `json:"displaySize"`
}

// ListFiles returns the remote listing filtered by the optional q parameter
func (h *FileHandler) ListFiles(c *gin.Context) {
	files := h.fileService.ListFiles(c.Query("q"))

	entries := lo.Map(files, func(f types.RemoteFile, _ int) fileEntry {
		return fileEntry{RemoteFile: f, DisplaySize: services.FormatSize(f.Size)}
	})

	c.JSON(http.StatusOK, gin.H{
		"path":  h.fileService.CurrentPath(),
		"files": entries,
		"count": len(entries),
	})
}

// GetFile returns one listing entry
func (h *FileHandler) GetFile(c *gin.Context) {
	file, ok := h.fileService.GetFile(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "file not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file": fileEntry{RemoteFile: file, DisplaySize: services.FormatSize(file.Size)},
	})
}
