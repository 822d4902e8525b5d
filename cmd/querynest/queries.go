package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PadhikariDev/querynest/internal/directory"
	"github.com/PadhikariDev/querynest/internal/model"
)

func newQueriesCmd(a *app) *cobra.Command {
	var (
		staff  bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "List your queries, or the staff queue with --staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.ActorUser
			if staff {
				role = model.ActorStaff
			}
			dir := directory.New(a.client, a.cfg.StaffRoleTag, a.log)
			queries, err := dir.Fetch(cmd.Context(), role)
			if err != nil {
				return err
			}
			headers := []string{"ID", "Submitted", "By", "Tags", "Status", "Priority", "Message"}
			return render(a.out, format, queries, headers, func() [][]string {
				rows := make([][]string, 0, len(queries))
				for _, q := range queries {
					rows = append(rows, []string{
						q.ID,
						q.SubmittedAt.Local().Format("2006-01-02 15:04"),
						q.Submitter,
						strings.Join(q.TagList(), ", "),
						string(q.Status),
						string(q.Priority),
						q.Message,
					})
				}
				return rows
			})
		},
	}
	cmd.Flags().BoolVar(&staff, "staff", false, "show the staff queue for the configured role tag")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		categories []string
		message    string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new query",
		Long: "Submit a new query. Categories must be one of:\n  " +
			strings.Join(model.CategoryOptions, "\n  "),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" && len(args) > 0 {
				message = strings.Join(args, " ")
			}
			dir := directory.New(a.client, a.cfg.StaffRoleTag, a.log)
			if err := dir.Submit(cmd.Context(), categories, message); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Query submitted.")
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "query category (repeatable)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "describe the problem")
	return cmd
}
