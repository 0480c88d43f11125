// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/ontograph/internal/config"
	"github.com/sigil-dev/ontograph/internal/secrets"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// NewRootCmd creates the root ontograph command with all subcommands
// registered. Each root gets its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "ontograph",
		Short:         "ontograph - ontology graph engine",
		Long:          "ontograph manages a class hierarchy, class properties and typed objects on a property graph (SQLite, PostgreSQL or Neo4j).",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd, v); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), v)
			return nil
		},
	}

	// Global flags. These map to viper keys in initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(v),
		newStatusCmd(),
		newVersionCmd(),
		newClassCmd(v),
		newObjectCmd(v),
		newTreeCmd(v),
		newImportCmd(v),
		newExportCmd(v),
		newDoctorCmd(v),
		newSecretCmd(),
	)

	return root
}

// initViper sets up v with defaults, env bindings, flag bindings, and an
// optional config file so the standard precedence (flag > env > file >
// defaults) is handled uniformly.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return ontoerr.Errorf(ontoerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset so viper does not fall back to the
		// bare name, which would match the ./ontograph binary.
		v.SetConfigName("ontograph")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ontograph")
		v.AddConfigPath("/etc/ontograph")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return ontoerr.Errorf(ontoerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return ontoerr.Errorf(ontoerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		config.WarnInsecurePermissions(used)
	}

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return ontoerr.Errorf(ontoerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return ontoerr.Errorf(ontoerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}
	return nil
}

// setupLogging installs the default slog handler from logging.level and
// logging.format. --verbose forces debug.
func setupLogging(w io.Writer, v *viper.Viper) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("logging.level"))); err != nil {
		level = slog.LevelInfo
	}
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(v.GetString("logging.format"), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// secretStoreFactory creates the secrets.Store used for keyring:// values and
// the secret command. Tests substitute an in-memory store.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyring()
}

// loadConfig resolves keyring references in v and decodes the validated
// configuration.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	if n := secrets.ResolveViper(v, secretStoreFactory()); n > 0 {
		slog.Debug("resolved keyring references", "count", n)
	}
	return config.FromViper(v)
}

// resolveDataDir returns the data directory from v or the default.
func resolveDataDir(v *viper.Viper) string {
	if dataDir := v.GetString("data_dir"); dataDir != "" {
		return dataDir
	}
	dataDir, err := config.DefaultDataDir()
	if err != nil {
		return "."
	}
	return dataDir
}

// ensureDataDir creates dir when missing.
func ensureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ontoerr.Errorf(ontoerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}
	return nil
}
