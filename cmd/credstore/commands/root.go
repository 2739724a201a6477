package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	v          *viper.Viper
	settings   *Settings
	logger     *logrus.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "credstore",
		Short:         "Operate the credential and session store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.v = viper.New()
			settings, err := LoadSettings(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.settings = settings
			a.logger = newLogger(settings.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: ./credstore.yaml)")

	rootCmd.AddCommand(
		newBackendCommand(a),
		newMigrateCommand(a),
		newHashPasswordCommand(a),
		newVerifyPasswordCommand(a),
		newLintCommand(a),
		newBenchCompareCommand(),
	)

	return rootCmd
}
