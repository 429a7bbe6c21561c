package services

import (
	"testing"
	"time"

	"novascp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionSweeperRemovesFinishedTransfers(t *testing.T) {
	engine := NewTransferEngine(EngineConfig{
		TickInterval: time.Millisecond,
		Source: ProgressSourceFunc(func(types.TransferJob) ProgressStep {
			return ProgressStep{Increment: 100}
		}),
	})
	defer engine.Close()

	id, err := engine.StartTransfer("done.txt", types.DirectionDownload)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, _ := engine.GetJob(id)
		return job.Status == types.TransferStatusCompleted
	}, time.Second, time.Millisecond)

	sweeper, err := NewRetentionSweeper(engine, 0, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, sweeper.Sweep())
	assert.Empty(t, engine.Jobs())
	assert.Equal(t, 0, sweeper.Sweep())
}

func TestRetentionSweeperRunsOnSchedule(t *testing.T) {
	engine := NewTransferEngine(EngineConfig{
		TickInterval: time.Millisecond,
		Source: ProgressSourceFunc(func(types.TransferJob) ProgressStep {
			return ProgressStep{Increment: 100}
		}),
	})
	defer engine.Close()

	sweeper, err := NewRetentionSweeper(engine, 0, time.Second)
	require.NoError(t, err)
	sweeper.Start()
	defer sweeper.Stop()

	_, err = engine.StartTransfer("done.txt", types.DirectionDownload)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(engine.Jobs()) == 0
	}, 5*time.Second, 50*time.Millisecond)
}
