package cmd

import (
	"bytes"
	"testing"
	"time"

	"novascp/services"
	"novascp/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTransfers(t *testing.T) {
	engine := services.NewTransferEngine(services.EngineConfig{
		TickInterval: time.Millisecond,
		Source:       services.NewRandomProgressSource(0, 11),
	})
	defer engine.Close()

	var out bytes.Buffer
	files := []string{"a.txt", "b.txt", "c.txt"}
	results, err := RunTransfers(engine, files, types.DirectionUpload, &out)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	for i, job := range results {
		assert.Equal(t, files[i], job.FileName)
		assert.Equal(t, types.DirectionUpload, job.Direction)
		assert.Equal(t, types.TransferStatusCompleted, job.Status)
		assert.Equal(t, 100, job.Progress)
	}
	assert.Contains(t, out.String(), "Uploading 3 file(s)")
}

func TestRunTransfersRejectsBadInput(t *testing.T) {
	engine := services.NewTransferEngine(services.EngineConfig{TickInterval: time.Millisecond})
	defer engine.Close()

	_, err := RunTransfers(engine, []string{"a"}, types.Direction("sideways"), &bytes.Buffer{})
	assert.ErrorIs(t, err, services.ErrInvalidDirection)
}

func TestTransferCommand(t *testing.T) {
	t.Setenv("NOVASCP_TRANSFER_TICK_INTERVAL", "1ms")
	t.Setenv("NOVASCP_LOG_LEVEL", "error")

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"transfer", "--direction", "download", "report.pdf"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "completed")
	assert.Contains(t, stdout.String(), "report.pdf")
}

func TestTransferCommandReportsFailures(t *testing.T) {
	t.Setenv("NOVASCP_TRANSFER_TICK_INTERVAL", "1ms")
	t.Setenv("NOVASCP_TRANSFER_FAILURE_RATE", "1")
	t.Setenv("NOVASCP_LOG_LEVEL", "error")

	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"transfer", "a.bin", "b.bin"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 transfers failed")
	assert.Contains(t, stdout.String(), "error")
}

func TestAskCommandFallsBack(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("NOVASCP_ASSISTANT_API_KEY", "")
	t.Setenv("NOVASCP_LOG_LEVEL", "error")

	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"ask", "how", "do", "I", "copy", "a", "folder?"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), services.FallbackAnswer)

	root = NewRootCmd()
	stdout.Reset()
	root.SetOut(&stdout)
	root.SetArgs([]string{"scp-command", "--source", "a", "--dest", "b"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), services.FallbackSCPCommand().Command)
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.DebugMode, ginMode("debug"))
	assert.Equal(t, gin.TestMode, ginMode("test"))
	assert.Equal(t, gin.ReleaseMode, ginMode(""))
	assert.Equal(t, gin.ReleaseMode, ginMode("loud"))
}
