package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirbo/swishsensei/internal/config"
)

type rootFlags struct {
	configFile string
	envFile    string
	sets       map[string]string
}

func (f *rootFlags) load() (config.Settings, error) {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil {
			return config.Settings{}, err
		}
	}
	return config.Load(config.Options{File: f.configFile, Overrides: f.sets})
}

// newRootCmd is the base command for the swishctl CLI.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "swishctl",
		Short:         "SwishSensei configuration and bench tooling",
		Long:          "swishctl inspects the shared sensor/collector settings, renders the firmware header and replays synthetic sensor traffic.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file loaded before resolving settings")
	root.PersistentFlags().StringToStringVar(&flags.sets, "set", nil, "override a key, e.g. --set MQTT_PORT=8883")

	root.AddCommand(newConfigCmd(flags), newSimulateCmd(flags))
	return root
}
