package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cpunion/reply-bot/pkg/store"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		dbPath string
		filter store.Filter
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent composer decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.cfg.Audit.DBPath
			}
			if dbPath == "" {
				return errors.New("no audit database: set audit.db_path or --db")
			}
			s, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			counts, err := s.Counts(cmd.Context())
			if err != nil {
				return err
			}
			renderAudit(cmd.OutOrStdout(), rows, counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "audit database (default audit.db_path)")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "number of decisions")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "only this outcome")
	cmd.Flags().StringVar(&filter.AuthorID, "author", "", "only this author")
	cmd.Flags().BoolVar(&filter.OnlyReplies, "replies", false, "only decisions that produced a reply")
	return cmd
}
