package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/common"
)

var validRoles = []models.Role{
	models.RolePatient,
	models.RoleHealthcareWorker,
	models.RoleAdmin,
	models.RoleGovernment,
}

func newSessionCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the device session",
	}
	cmd.AddCommand(newSessionSetCommand(app))
	cmd.AddCommand(newSessionShowCommand(app))
	return cmd
}

func newSessionSetCommand(app *App) *cobra.Command {
	var (
		sess      models.Session
		role      string
		biometric bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the signed-in identity on this device",
		Long: `Store the signed-in identity on this device, replacing any previous one.
Use --token - to read the bearer token from the terminal without echo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sess.Token == "-" {
				tok, err := readSecret("Enter token: ", cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				sess.Token = tok
			}
			sess.Role = models.Role(role)
			if !slices.Contains(validRoles, sess.Role) {
				return fmt.Errorf("invalid role %q", role)
			}
			sess.BiometricVerified = biometric

			if err := app.sessionService().Save(cmd.Context(), &sess); err != nil {
				return err
			}
			if app.isJSON() {
				return app.printJSON(redact(sess))
			}
			app.printf("signed in as %s (%s)\n", sess.OwnerID, sess.Role)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&sess.OwnerID, "owner", "", "MOSIP id of the signed-in user (required)")
	f.StringVar(&sess.Name, "name", "", "display name")
	f.StringVar(&role, "role", string(models.RolePatient), "patient|healthcare_worker|admin|government")
	f.StringVar(&sess.Token, "token", "", "bearer token for the remote authority, - to prompt")
	f.BoolVar(&biometric, "biometric", false, "biometric check passed")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newSessionShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.sessionService().Current(cmd.Context())
			if errors.Is(err, common.ErrNotFound) {
				app.printf("not signed in\n")
				return nil
			}
			if err != nil {
				return err
			}
			return app.printJSON(redact(*sess))
		},
	}
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and wipe all local records and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sessionService().Logout(cmd.Context()); err != nil {
				return err
			}
			app.printf("signed out, local data cleared\n")
			return nil
		},
	}
}

func redact(s models.Session) models.Session {
	if s.Token != "" {
		s.Token = "***"
	}
	return s
}
