package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/PadhikariDev/querynest/internal/analytics"
	"github.com/PadhikariDev/querynest/internal/model"
)

func newStatsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the support desk analytics report",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := analytics.Load(cmd.Context(), a.client)
			if err != nil {
				return err
			}
			if format != formatTable && format != "" {
				return render(a.out, format, report, nil, nil)
			}

			avg := analytics.AverageResponse(report)
			fmt.Fprintf(a.out, "Users: %d   Teams: %d   Queries: %d   Avg first response: %s\n\n",
				report.TotalUsers, report.TotalTeams, report.TotalQueries, avg.Round(time.Minute))

			if err := render(a.out, formatTable, report.QueryTypes, []string{"Query type", "Count"}, func() [][]string {
				return typeRows(report.QueryTypes)
			}); err != nil {
				return err
			}
			return render(a.out, formatTable, report.ResponseTimes, []string{"Day", "Hours to first response"}, func() [][]string {
				rows := make([][]string, 0, len(report.ResponseTimes))
				for _, rt := range report.ResponseTimes {
					rows = append(rows, []string{rt.Day, strconv.FormatFloat(rt.Hours, 'f', 2, 64)})
				}
				return rows
			})
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func typeRows(types []model.TypeCount) [][]string {
	rows := make([][]string, 0, len(types))
	for _, t := range types {
		rows = append(rows, []string{t.Name, strconv.Itoa(t.Value)})
	}
	return rows
}
