package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "livewindow",
		Short: "livewindow - live capture of application windows into a composed scene",
		Long: `livewindow captures individual application windows and composes them
into a scene that is streamed as MJPEG over HTTP.

Features:
  • Find windows by title, class or executable, and find them again after restarts
  • Follow window moves, resizes and minimize/restore
  • Raise the focused window above other captured windows
  • Hide the cursor while another application has focus
  • Persistent configuration
  • REST API and live source state over WebSocket`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := viper.GetString("log_level")
			if level == "" {
				level = string(logger.InfoLevel)
			}
			logger.Init(level, true)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/livewindow/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("livewindow")
	viper.AutomaticEnv()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
