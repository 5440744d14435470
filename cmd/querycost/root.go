package main

import (
	"github.com/spf13/cobra"

	config "github.com/hanpama/querycost/internal/config"
)

const rootLong = `querycost scores GraphQL queries before they reach your server.

Every operation is walked against the schema and priced with a chain of
estimators. Operations above the complexity or node ceiling are rejected.`

type rootOptions struct {
	configPath    string
	schemaPaths   []string
	maxComplexity float64
	logLevel      string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "querycost",
		Short:         "GraphQL query complexity analysis",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.StringSliceVarP(&opts.schemaPaths, "schema", "s", nil, "SDL files or directories (overrides schema.paths)")
	flags.Float64Var(&opts.maxComplexity, "max-complexity", 0, "Complexity ceiling (overrides limits.maximumComplexity)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides log.level)")

	cmd.AddCommand(
		newServeCommand(opts),
		newCheckCommand(opts),
		newSchemaCommand(opts),
		newProtoCommand(),
	)
	return cmd
}

// loadConfig reads the configuration file and applies the command line
// overrides on top of it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath, func(c *config.Config) {
		if len(o.schemaPaths) > 0 {
			c.Schema.Paths = o.schemaPaths
		}
		if o.maxComplexity > 0 {
			c.Limits.MaximumComplexity = o.maxComplexity
		}
		if o.logLevel != "" {
			c.Log.Level = o.logLevel
		}
	})
}
