package cli

import (
	"github.com/spf13/cobra"
)

func newHistoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or edit a patient's medical history",
	}
	cmd.AddCommand(newHistoryShowCommand(app))
	cmd.AddCommand(newHistorySetCommand(app))
	return cmd
}

func newHistoryShowCommand(app *App) *cobra.Command {
	var patient string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the medical history (empty when none is stored)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := app.recordService().MedicalHistory(cmd.Context(), patient)
			if err != nil {
				return err
			}
			return app.printJSON(h)
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "", "patient MOSIP id (required)")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func newHistorySetCommand(app *App) *cobra.Command {
	var (
		patient                                                    string
		allergies, contraindications, conditions, meds, reactions []string
		notes                                                      string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace parts of the medical history",
		Long: `Replace parts of the medical history. Only the lists given on the
command line are replaced; the rest are kept.

Example:
  vaxsync history set --patient MOSIP-1 --allergy penicillin --allergy latex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := app.recordService()
			h, err := svc.MedicalHistory(cmd.Context(), patient)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("allergy") {
				h.Allergies = allergies
			}
			if f.Changed("contraindication") {
				h.Contraindications = contraindications
			}
			if f.Changed("condition") {
				h.ChronicConditions = conditions
			}
			if f.Changed("medication") {
				h.Medications = meds
			}
			if f.Changed("reaction") {
				h.PreviousAdverseReactions = reactions
			}
			if f.Changed("notes") {
				h.Notes = notes
			}

			qid, err := svc.SaveMedicalHistory(cmd.Context(), h)
			if err != nil {
				return err
			}
			return app.printMutation("saved", h.ID, qid)
		},
	}

	f := cmd.Flags()
	f.StringVar(&patient, "patient", "", "patient MOSIP id (required)")
	f.StringArrayVar(&allergies, "allergy", nil, "allergy (repeatable)")
	f.StringArrayVar(&contraindications, "contraindication", nil, "contraindication (repeatable)")
	f.StringArrayVar(&conditions, "condition", nil, "chronic condition (repeatable)")
	f.StringArrayVar(&meds, "medication", nil, "current medication (repeatable)")
	f.StringArrayVar(&reactions, "reaction", nil, "previous adverse reaction (repeatable)")
	f.StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}
