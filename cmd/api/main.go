// @title Pet Health Tracker API
// @version 0.1.0
// @description Medicaciones, vacunas, métricas diarias y calendario de salud por mascota.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"fmt"
	"os"

	_ "pet-health-tracker/docs"
	"pet-health-tracker/internal/config"
	"pet-health-tracker/internal/platform/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string

	cfg *config.Config
	log logger.Logger

	rootCmd = &cobra.Command{
		Use:           "pet-health-tracker",
		Short:         "API de salud de mascotas: cuidados, métricas y calendario",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Sin subcomando levanta el servidor.
		RunE: runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "ruta del YAML de config (default: $CONFIG_PATH o ./config/base.yaml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}

		log = logger.New(logger.Options{
			Level:  logger.ParseLevel(cfg.Logging.Level),
			Format: logger.ParseFormat(cfg.Logging.Format),
			App:    cfg.Service.Name,
		})
		return nil
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, remindCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
