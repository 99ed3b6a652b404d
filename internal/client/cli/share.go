package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newShareCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share a patient's records by code",
	}
	cmd.AddCommand(newShareCreateCommand(app))
	cmd.AddCommand(newShareShowCommand(app))
	cmd.AddCommand(newShareRevokeCommand(app))
	return cmd
}

func newShareCreateCommand(app *App) *cobra.Command {
	var (
		patient string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the patient's records under a new share code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, qid, err := app.recordService().ShareRecords(cmd.Context(), patient, ttl)
			if err != nil {
				return err
			}
			if app.isJSON() {
				return app.printJSON(map[string]any{"share": rec, "queueEntry": qid})
			}
			app.printf("share code %s (id %s), %d records, expires %s\n",
				rec.ShareCode, rec.ID, len(rec.Vaccinations),
				time.UnixMilli(rec.ExpiresAt).Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "", "patient MOSIP id (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "how long the code stays valid")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func newShareShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show the records behind a share code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := app.recordService().SharedByCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.printJSON(rec)
		},
	}
}

func newShareRevokeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qid, err := app.recordService().RevokeShare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.printMutation("revoked", args[0], qid)
		},
	}
}
