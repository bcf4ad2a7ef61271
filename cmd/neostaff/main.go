// Command neostaff manages companies and workers stored in a Neo4j graph.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand. Set flags override
// the config file and the environment.
type rootFlags struct {
	configPath string
	uri        string
	user       string
	password   string
	database   string
	logLevel   string
	noBreaker  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "neostaff",
		Short:         "Manage companies and workers in a Neo4j graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&flags.uri, "uri", "", "Neo4j connection URI (e.g. neo4j://localhost:7687)")
	pf.StringVar(&flags.user, "user", "", "Neo4j username")
	pf.StringVar(&flags.password, "password", "", "Neo4j password")
	pf.StringVar(&flags.database, "database", "", "Neo4j database name")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.noBreaker, "no-breaker", false, "disable the circuit breaker")

	rootCmd.AddCommand(
		newDemoCmd(flags),
		newVerifyCmd(flags),
		newCompanyCmd(flags),
		newWorkerCmd(flags),
		newRelateCmd(flags),
		newRosterCmd(flags),
	)
	return rootCmd
}
