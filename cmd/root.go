package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	config  = "./config/atlas.yaml"
	rootCmd = &cobra.Command{
		Use:   "ap-atlas",
		Short: "Atlas operations CLI",
		Long: `Build, hash and submit Atlas user, solver and dApp operations.

Offline helpers such as "ap-atlas hash-userop" need no config. "ap-atlas auction"
reads the relay or backend endpoints from --config.`,
		SilenceUsage: true,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "config/atlas.yaml", "Path to config file")
}
