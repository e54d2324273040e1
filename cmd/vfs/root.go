package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rstms/vfs"
	"github.com/rstms/vfs/config"
	"github.com/rstms/vfs/logging"
	"github.com/rstms/vfs/metrics"
)

var (
	cfgFile  string
	logLevel string

	logger   *logging.Logger
	registry *prometheus.Registry
	session  *vfs.VFS
)

var rootCmd = &cobra.Command{
	Use:          "vfs",
	Short:        "operate on the configured filesystem drives",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return openSession()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeSession()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// openSession builds the drive table and mounts every drive. Drives that
// fail to mount are logged and left for format.
func openSession() error {
	// a failed command skips the post run hook
	closeSession()
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return Fatal(err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err = logging.New(cfg.Logging())
	if err != nil {
		return Fatal(err)
	}
	registry = prometheus.NewRegistry()
	session, err = config.Build(cfg, logger.Logger, metrics.New(registry))
	if err != nil {
		return Fatal(err)
	}
	for _, err := range multierr.Errors(session.MountAll()) {
		logger.Debug("mount", zap.Error(err))
	}
	return nil
}

func closeSession() error {
	if session == nil {
		return nil
	}
	err := session.UnmountAll()
	session = nil
	logger.Sync()
	if err != nil {
		return Fatal(err)
	}
	return nil
}
