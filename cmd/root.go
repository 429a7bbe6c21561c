package cmd

import (
	"novascp/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	logLevel string
)

// NewRootCmd creates the novascp command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "novascp",
		Short: "NovaSCP - simulated remote file transfer backend",
		Long: `NovaSCP serves a mock remote file browser, a simulated transfer
queue with live progress over WebSocket, saved server profiles and
an assistant for SCP and SSH questions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}
			config.SetupLogging(loaded)
			cfg = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTransferCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSCPCommandCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			cfg.GinMode = ginMode(cfg.GinMode)
			return StartWebServer(cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for the web server")
	return cmd
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
