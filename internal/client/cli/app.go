package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/config"
	"github.com/vaxtrace/vaxsync/internal/client/control"
	"github.com/vaxtrace/vaxsync/internal/client/services"
	"github.com/vaxtrace/vaxsync/internal/client/store"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// agentTimeout bounds one control call made by a command.
const agentTimeout = 30 * time.Second

// App is the state shared by the commands of one invocation. The store and
// the control connection are opened on first use.
type App struct {
	config *config.Config
	format string
	out    io.Writer
	log    logging.Logger

	store    *store.Store
	agent    *control.Client
	records  services.RecordService
	sessions services.SessionService
}

func (a *App) init(cfg *config.Config, format string, out io.Writer, log logging.Logger) {
	a.config = cfg
	a.format = format
	a.out = out
	a.log = log
}

func (a *App) agentClient() (*control.Client, error) {
	if a.agent == nil {
		c, err := control.Dial(a.config.ControlAddr)
		if err != nil {
			return nil, fmt.Errorf("dial agent %s: %w", a.config.ControlAddr, err)
		}
		a.agent = c
	}
	return a.agent, nil
}

func (a *App) localStore() *store.Store {
	if a.store == nil {
		a.store = store.New(a.config.DataPath, a.log)
	}
	return a.store
}

func (a *App) recordService() services.RecordService {
	if a.records == nil {
		var notify services.Notifier
		if c, err := a.agentClient(); err == nil {
			notify = c
		} else {
			a.log.Warn(context.Background(), "agent not available, changes stay queued", "error", err)
		}
		a.records = services.NewRecordService(a.localStore(), notify, a.log)
	}
	return a.records
}

func (a *App) sessionService() services.SessionService {
	if a.sessions == nil {
		a.sessions = services.NewSessionService(a.localStore(), a.log)
	}
	return a.sessions
}

// callAgent sends t to the agent and turns an unsuccessful reply into an
// error.
func (a *App) callAgent(ctx context.Context, t control.Type) (control.Response, error) {
	c, err := a.agentClient()
	if err != nil {
		return control.Response{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, agentTimeout)
	defer cancel()

	resp, err := c.Call(ctx, t)
	if err != nil {
		return control.Response{}, fmt.Errorf("agent %s: %w", t, err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("agent %s: %s", t, resp.Error)
	}
	return resp, nil
}

// Close releases the store and the control connection.
func (a *App) Close() error {
	var err error
	if a.agent != nil {
		err = a.agent.Close()
		a.agent = nil
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.store = nil
	}
	a.records, a.sessions = nil, nil
	return err
}

func (a *App) isJSON() bool {
	return a.format == "json"
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
