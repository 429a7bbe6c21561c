package cmd

import (
	"fmt"
	"strings"

	"novascp/services"
	"novascp/types"

	"github.com/spf13/cobra"
)

func newAssistantGateway() services.AssistantGateway {
	return services.NewAssistantGateway(services.AssistantConfig{
		Endpoint: cfg.Assistant.Endpoint,
		Model:    cfg.Assistant.Model,
		APIKey:   cfg.Assistant.APIKey,
		RetryMax: cfg.Assistant.RetryMax,
		Timeout:  cfg.Assistant.Timeout,
	})
}

func newAskCmd() *cobra.Command {
	var userContext string

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask the assistant an SCP, SSH or server question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer := newAssistantGateway().Ask(cmd.Context(), strings.Join(args, " "), userContext)
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&userContext, "context", "", "Extra context for the question")
	return cmd
}

func newSCPCommandCmd() *cobra.Command {
	var req types.SCPCommandRequest

	cmd := &cobra.Command{
		Use:   "scp-command",
		Short: "Generate an scp command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := newAssistantGateway().GenerateSCPCommand(cmd.Context(), req)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Command)
			fmt.Fprintln(out)
			fmt.Fprintln(out, result.Explanation)
			if result.SecurityNote != "" {
				fmt.Fprintf(out, "\nNote: %s\n", result.SecurityNote)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Source, "source", "", "Source path")
	cmd.Flags().StringVar(&req.Dest, "dest", "", "Destination path")
	cmd.Flags().StringVar(&req.Host, "host", "", "Remote host")
	cmd.Flags().StringVar(&req.User, "user", "", "Remote user")
	cmd.Flags().StringVar(&req.Options, "options", "", "Extra scp options")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")
	return cmd
}
