package cli

import (
	"github.com/spf13/cobra"

	"github.com/vaxtrace/vaxsync/internal/client/control"
	"github.com/vaxtrace/vaxsync/internal/client/models"
)

// StatusResult is printed by the status command.
type StatusResult struct {
	Pending     int                   `json:"pending"`
	Resolved    int                   `json:"resolved"`
	Agent       string                `json:"agent"`
	Online      bool                  `json:"online"`
	LastReplay  *models.ReplayOutcome `json:"lastReplay,omitempty"`
	AgentDetail string                `json:"agentError,omitempty"`
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending changes and agent state",
		Long: `Show how many changes are waiting for sync, the outcome of the last
replay and whether the agent sees the remote authority.

The counts come from the local store, so they are shown even when the agent
is not running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := app.localStore()

			counts, err := st.Counts(ctx)
			if err != nil {
				return err
			}
			res := StatusResult{Pending: counts.Pending, Resolved: counts.Resolved, Agent: "running"}

			if o, ok, err := st.LastReplayOutcome(ctx); err != nil {
				return err
			} else if ok {
				res.LastReplay = &o
			}

			if resp, err := app.callAgent(ctx, control.Status); err != nil {
				res.Agent = "unreachable"
				res.AgentDetail = err.Error()
			} else {
				res.Online = resp.Online
			}

			if app.isJSON() {
				return app.printJSON(res)
			}
			app.printf("pending:  %d\nresolved: %d\n", res.Pending, res.Resolved)
			if res.LastReplay != nil {
				app.printf("last replay: %s (%d resolved, %d failed)\n",
					res.LastReplay.At.Format("2006-01-02 15:04:05"), res.LastReplay.Resolved, res.LastReplay.Failed)
			}
			if res.Agent == "running" {
				state := "offline"
				if res.Online {
					state = "online"
				}
				app.printf("agent:    running, %s\n", state)
			} else {
				app.printf("agent:    unreachable\n")
			}
			return nil
		},
	}
}

func newSyncCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask the agent to replay pending changes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.callAgent(cmd.Context(), control.TriggerSync)
			if err != nil {
				return err
			}
			if app.isJSON() {
				return app.printJSON(resp)
			}
			app.printf("synced: %d resolved, %d failed\n", resp.Resolved, resp.Failed)
			return nil
		},
	}
}

func newClearCacheCommand(app *App) *cobra.Command {
	return simpleAgentCommand(app, "clear-cache", "Drop the proxy's current cache generation", control.ClearCache, "cache cleared")
}

func newSkipWaitingCommand(app *App) *cobra.Command {
	return simpleAgentCommand(app, "skip-waiting", "Activate the current cache generation and drop stale ones", control.SkipWaiting, "cache generation activated")
}

func simpleAgentCommand(app *App, use, short string, t control.Type, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.callAgent(cmd.Context(), t)
			if err != nil {
				return err
			}
			if app.isJSON() {
				return app.printJSON(resp)
			}
			app.printf("%s\n", done)
			return nil
		},
	}
}

func newQueueCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List changes waiting for sync, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.localStore().ListUnresolved(cmd.Context())
			if err != nil {
				return err
			}
			if app.isJSON() {
				if entries == nil {
					entries = []*models.QueueEntry{}
				}
				return app.printJSON(entries)
			}
			if len(entries) == 0 {
				app.printf("nothing to sync\n")
				return nil
			}
			for _, e := range entries {
				app.printf("%s  %-6s %-20s %s", e.ID, e.Action, e.Collection, e.RecordID)
				if e.LastError != "" {
					app.printf("  (attempts %d: %s)", e.Attempts, e.LastError)
				}
				app.printf("\n")
			}
			return nil
		},
	}
}
