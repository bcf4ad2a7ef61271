package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-neostaff/internal/workforce"
)

func newDemoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the stock create/find/delete/relate sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				return workforce.RunDemo(ctx, a.service, workforce.DefaultScript())
			})
		},
	}
}

func newVerifyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the database is reachable with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				if err := a.executor.Verify(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connection to database '%s' was successful!\n", a.executor.DBName)
				return nil
			})
		},
	}
}

func newCompanyCmd(flags *rootFlags) *cobra.Command {
	companyCmd := &cobra.Command{
		Use:   "company",
		Short: "Manage Company nodes",
	}
	companyCmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				return a.service.CreateCompany(ctx, args[0])
			})
		},
	})
	return companyCmd
}

func newWorkerCmd(flags *rootFlags) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage Worker nodes",
	}
	workerCmd.AddCommand(
		&cobra.Command{
			Use:   "create NAME SURNAME EMAIL",
			Short: "Create a worker",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
					return a.service.CreateWorker(ctx, args[0], args[1], args[2])
				})
			},
		},
		&cobra.Command{
			Use:   "delete NAME SURNAME EMAIL",
			Short: "Delete a worker and its relationships",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
					return a.service.DeleteWorker(ctx, args[0], args[1], args[2])
				})
			},
		},
		&cobra.Command{
			Use:   "find NAME",
			Short: "Print the surnames of workers with the given name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
					_, err := a.service.FindWorker(ctx, args[0])
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every worker",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
					_, err := a.service.ListWorkers(ctx)
					return err
				})
			},
		},
	)
	return workerCmd
}

func newRelateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "relate NAME SURNAME EMAIL COMPANY",
		Short: "Record that a worker works in a company",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				_, err := a.service.CreateRelationship(ctx, args[0], args[1], args[2], args[3])
				return err
			})
		},
	}
}

func newRosterCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "roster COMPANY",
		Short: "Print a company and its workers as graph JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				graph, err := a.service.Roster(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(graph)
			})
		},
	}
}
