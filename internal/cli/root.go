// Package cli implements the veilportctl admin command line tool. It talks
// to the database directly, so it works while the API server is down.
package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veilport/veilport/internal/config"
	"github.com/veilport/veilport/internal/repository/postgres"
)

// NewRootCmd builds the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "veilportctl",
		Short:         "Administrative tool for the veilport service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("db-driver", "sqlite", "database driver (sqlite or postgres)")
	root.PersistentFlags().String("db-path", "veilport.db", "sqlite database path")
	root.PersistentFlags().String("db-host", "localhost", "postgres host")
	root.PersistentFlags().Int("db-port", 5432, "postgres port")
	root.PersistentFlags().String("db-name", "veilport", "postgres database name")
	root.PersistentFlags().String("db-user", "veilport", "postgres user")
	root.PersistentFlags().String("db-password", "", "postgres password")
	root.PersistentFlags().String("db-sslmode", "disable", "postgres sslmode")

	viper.SetEnvPrefix("VEILPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(root.PersistentFlags())

	// Optional config file: ~/.veilport/config.yaml
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(filepath.Join(home, ".veilport"))
		_ = viper.ReadInConfig()
	}

	root.AddCommand(newAdminCmd())
	root.AddCommand(newCodesCmd())

	return root
}

// openDB connects using the resolved flag/env configuration and applies
// pending migrations.
func openDB(cmd *cobra.Command) (*postgres.DB, error) {
	dbCfg := config.DatabaseConfig{
		Driver:   viper.GetString("db-driver"),
		Path:     viper.GetString("db-path"),
		Host:     viper.GetString("db-host"),
		Port:     viper.GetInt("db-port"),
		Name:     viper.GetString("db-name"),
		User:     viper.GetString("db-user"),
		Password: viper.GetString("db-password"),
		SSLMode:  viper.GetString("db-sslmode"),
	}

	db, err := postgres.New(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
