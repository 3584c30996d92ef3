package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lab-hours/internal/config"
	"lab-hours/internal/logger"
)

// globalOptions - флаги, общие для всех команд
type globalOptions struct {
	configPath string
	logLevel   string
}

func (o *globalOptions) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", config.DefaultPath, "Path to YAML config (env CONFIG_PATH)")
	fs.StringVar(&o.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

// load читает конфиг и создает логгер; флаг --log-level важнее конфига
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	path := o.configPath
	if !cmd.Flags().Changed("config") {
		if env, ok := os.LookupEnv("CONFIG_PATH"); ok {
			path = env
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}

	log := logger.New(level)
	log.SetOutput(cmd.ErrOrStderr())
	return cfg, log, nil
}

// openApp загружает конфиг и собирает приложение
func (o *globalOptions) openApp(cmd *cobra.Command) (*App, error) {
	cfg, log, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, log)
}

// NewRootCmd создает команду "labhours" со всеми подкомандами
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "labhours",
		Short:         "Work-hour accounting with weekly rollover",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.bind(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(opts),
		newRolloverCmd(opts),
		newBackfillCmd(opts),
		newStatusCmd(opts),
	)

	return root
}
