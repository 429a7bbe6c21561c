package cmd

import (
	"fmt"
	"io"
	"os"

	"novascp/services"
	"novascp/types"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newTransferCmd() *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "transfer <file> [file...]",
		Short: "Run simulated transfers in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := services.NewTransferEngine(services.EngineConfig{
				TickInterval: cfg.Transfer.TickInterval,
				Source:       services.NewRandomProgressSource(cfg.Transfer.FailureRate, 0),
			})
			defer engine.Close()

			results, err := RunTransfers(engine, args, types.Direction(direction), os.Stderr)
			if err != nil {
				return err
			}

			failed := 0
			for _, job := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-30s %s\n", job.Status, job.FileName, job.Error)
				if job.Status != types.TransferStatusCompleted {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d transfers failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", string(types.DirectionDownload), "Transfer direction (upload or download)")
	return cmd
}

// RunTransfers starts one transfer per file and renders their combined
// progress until every one of them is terminal. Results are returned in
// the order of files.
func RunTransfers(engine services.TransferEngine, files []string, direction types.Direction, out io.Writer) ([]types.TransferJob, error) {
	updates, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id, err := engine.StartTransfer(f, direction)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", f, err)
		}
		ids = append(ids, id)
	}

	verb := "Downloading"
	if direction == types.DirectionUpload {
		verb = "Uploading"
	}

	bar := progressbar.NewOptions(len(ids)*100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(fmt.Sprintf("%s %d file(s)", verb, len(ids))),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	for snapshot := range updates {
		total, done := 0, 0
		for _, job := range snapshot {
			if !wanted[job.ID] {
				continue
			}
			total += job.Progress
			if job.Status.Terminal() {
				done++
			}
		}
		bar.Set(total)
		if done == len(ids) {
			break
		}
	}
	bar.Finish()

	results := make([]types.TransferJob, 0, len(ids))
	for _, id := range ids {
		job, ok := engine.GetJob(id)
		if !ok {
			return nil, fmt.Errorf("transfer %s disappeared", id)
		}
		results = append(results, job)
	}
	return results, nil
}
