package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vaxtrace/vaxsync/internal/client/models"
)

type mutationResult struct {
	ID    string `json:"id"`
	Entry string `json:"queueEntry"`
}

func newRecordCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage vaccination records",
	}
	cmd.AddCommand(newRecordAddCommand(app))
	cmd.AddCommand(newRecordListCommand(app))
	cmd.AddCommand(newRecordShowCommand(app))
	cmd.AddCommand(newRecordVerifyCommand(app))
	cmd.AddCommand(newRecordDeleteCommand(app))
	return cmd
}

func newRecordAddCommand(app *App) *cobra.Command {
	rec := &models.VaccinationRecord{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an administered dose",
		Long: `Record an administered dose. The record is stored locally and queued
for the remote authority; it is visible immediately even when offline.

Examples:
  vaxsync record add --patient MOSIP-1 --vaccine BCG --date 2026-01-10
  vaxsync record add --patient MOSIP-1 --vaccine "Polio (OPV)" --dose 2 --total 4 --date 2026-02-01 --batch B-77`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qid, err := app.recordService().AddVaccination(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return app.printMutation("added", rec.ID, qid)
		},
	}

	f := cmd.Flags()
	f.StringVar(&rec.PatientMosipID, "patient", "", "patient MOSIP id (required)")
	f.StringVar(&rec.VaccineName, "vaccine", "", "vaccine name (required)")
	f.StringVar(&rec.DateAdministered, "date", "", "date administered, YYYY-MM-DD (required)")
	f.StringVar(&rec.VaccineType, "type", "", "vaccine type")
	f.IntVar(&rec.Dose, "dose", 1, "dose number")
	f.IntVar(&rec.TotalDoses, "total", 1, "total doses in the series")
	f.StringVar(&rec.Facility, "facility", "", "facility name")
	f.StringVar(&rec.Location, "location", "", "location")
	f.StringVar(&rec.BatchNumber, "batch", "", "batch number")
	f.StringVar(&rec.NextDueDate, "next-due", "", "next due date")
	f.StringVar(&rec.HealthcareProvider.Name, "provider", "", "administering provider name")
	f.StringVar(&rec.HealthcareProvider.MosipID, "provider-id", "", "administering provider MOSIP id")
	f.StringVar(&rec.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("vaccine")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func newRecordListCommand(app *App) *cobra.Command {
	var patient string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a patient's vaccination records by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := app.recordService().ListVaccinations(cmd.Context(), patient)
			if err != nil {
				return err
			}
			if app.isJSON() {
				if recs == nil {
					recs = []*models.VaccinationRecord{}
				}
				return app.printJSON(recs)
			}
			if len(recs) == 0 {
				app.printf("no records for %s\n", patient)
				return nil
			}
			for _, r := range recs {
				app.printf("%s  %s  %s (dose %d/%d)", r.ID, r.DateAdministered, r.VaccineName, r.Dose, r.TotalDoses)
				if r.Verified {
					app.printf("  verified")
				}
				app.printf("\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "", "patient MOSIP id (required)")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func newRecordShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one vaccination record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := app.recordService().GetVaccination(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.printJSON(rec)
		},
	}
}

func newRecordVerifyCommand(app *App) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Mark a vaccination record as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := app.recordService()
			rec, err := svc.GetVaccination(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec.Verified = true
			rec.VerifiedBy = by
			rec.VerifiedAt = time.Now().UnixMilli()
			qid, err := svc.UpdateVaccination(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return app.printMutation("verified", rec.ID, qid)
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "verifier MOSIP id")
	return cmd
}

func newRecordDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a vaccination record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qid, err := app.recordService().DeleteVaccination(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.printMutation("deleted", args[0], qid)
		},
	}
}

func (a *App) printMutation(verb, id, qid string) error {
	if a.isJSON() {
		return a.printJSON(mutationResult{ID: id, Entry: qid})
	}
	a.printf("%s %s (queued as %s)\n", verb, id, qid)
	return nil
}
