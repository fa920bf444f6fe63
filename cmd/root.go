// Package cmd implements the evacd CLI.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/civigrid/evacd/app"
	"github.com/civigrid/evacd/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "evacd",
	Short: "Evacuation dispatch service",
}

func init() {
	_ = godotenv.Load()
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(planCmd, serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func newService() (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}
