package config

import (
	"strings"

	"github.com/jacobpatterson1549/rts-masterserver/server/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NewCommand builds the cobra command that parses flags, layers them over
// environment variables and an optional config file via viper, and invokes
// run with the resulting Loader once flags are bound.
func NewCommand(use string, l log.Logger, run func(cmd *cobra.Command, l *Loader) error) *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           use,
		Short:         "Runs the RTS masterserver lobby service.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			loader := NewLoader(v, l)
			return run(cmd, loader)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	var port int
	var acceptedVersion []int
	var dbKind, dbHost, dbName, dbUser, dbPassword string
	var dbPort int
	fs.StringVar(&configFile, "config", "", "path to a YAML/JSON/TOML config file to load and hot-reload")
	fs.IntVar(&port, "port", 7777, "TCP port the masterserver listens on")
	fs.IntSliceVar(&acceptedVersion, "accepted-version", []int{1, 0, 0}, "protocol version clients must present")
	fs.StringVar(&dbKind, "database-kind", "postgres", "credential store backend: postgres, mongo, firestore, or memory")
	fs.StringVar(&dbHost, "database-host", "", "credential store host")
	fs.StringVar(&dbName, "database-dbname", "", "credential store database name")
	fs.StringVar(&dbUser, "database-user", "", "credential store user")
	fs.StringVar(&dbPassword, "database-password", "", "credential store password")
	fs.IntVar(&dbPort, "database-port", 5432, "credential store port")

	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", ".")
		if f.Name == "port" || f.Name == "accepted-version" {
			key = strings.ReplaceAll(f.Name, "-", "")
		}
		_ = v.BindPFlag(key, f)
	})

	return cmd
}
