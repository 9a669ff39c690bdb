package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-class-scheduler/internal/scenario"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

var (
	// Version is set at build time
	Version = "dev"
)

type app struct {
	root    *cobra.Command
	noColor bool
	timeout time.Duration
}

func newApp() *app {
	a := &app{}
	a.root = &cobra.Command{
		Use:   "sessionplan",
		Short: "Run the class session scheduler against a scenario file",
		Long: `sessionplan loads a TOML scenario (timeslot catalog, weekly pattern,
instructor commitments) and runs the scheduling engine offline.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.noColor {
				color.NoColor = true
			}
		},
	}
	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.generateCmd())
	a.root.AddCommand(a.statusCmd())
	a.root.AddCommand(a.alternativesCmd())
	return a
}

// Execute runs the CLI.
func (a *app) Execute() error {
	return a.root.Execute()
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sessionplan %s\n", Version)
		},
	}
}

func (a *app) generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <scenario.toml>",
		Short: "Print the generated session table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			result := scheduling.GenerateSessions(scheduling.GenerateInput{
				StartDate:      plan.StartDate,
				EndDate:        plan.EndDate,
				Pattern:        plan.Pattern,
				Catalog:        plan.Catalog,
				TargetSessions: plan.TotalSessions,
				Busy:           plan.Snapshot.Intervals,
			})
			if result.Empty() {
				return fmt.Errorf("no sessions could be generated")
			}
			printSessions(cmd.OutOrStdout(), plan, result)
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <scenario.toml>",
		Short: "Print the availability of every pattern slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			grid := scheduling.ResolveGrid(plan.Base, plan.Pattern)
			printGrid(cmd.OutOrStdout(), plan, grid)
			return nil
		},
	}
}

func (a *app) alternativesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alternatives <scenario.toml>",
		Short: "Suggest start dates where the whole pattern is free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			result, err := scheduling.SearchAlternativeStartDates(ctx, scheduling.AlternativeQuery{
				Base:                 plan.Base,
				Pattern:              plan.Pattern,
				Catalog:              plan.Catalog,
				TargetSessions:       plan.TotalSessions,
				CandidateStart:       plan.StartDate,
				Today:                plan.Today,
				RequiredSlotsPerWeek: plan.RequiredPerWeek,
				MaxResults:           plan.MaxResults,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			printAlternatives(cmd.OutOrStdout(), plan, result)
			return nil
		},
	}
	cmd.Flags().DurationVar(&a.timeout, "timeout", 10*time.Second, "Search time limit")
	return cmd
}
