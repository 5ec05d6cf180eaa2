package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "animctl",
	Short: "animctl talks to a shortshive API server",
	Long: `animctl submits scene animation runs and follows their progress.

Common workflows:

  Generate images for a story from a request file:
    animctl generate -f request.yaml

  Poll progress:
    animctl status <story-id>

  List the stored scenes of a story:
    animctl scenes <story-id>

Configuration:
  SHORTSHIVE_URL    API endpoint (default: http://localhost:3000)
  or "url" in $HOME/.animctl.yaml`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".animctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SHORTSHIVE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *Client {
	return NewClient(viper.GetString("url"))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.animctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:3000", "shortshive API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
