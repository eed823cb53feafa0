package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/app"
	"github.com/salesdesk/salesdesk/internal/session"
)

// cli carries what every command needs. It is filled in by the root
// command's pre-run hook.
type cli struct {
	statePath string
	apiURL    string
	output    string

	cfg    *app.ClientConfig
	logger *slog.Logger
	store  *session.FileStore
	holder *session.Holder
	client *api.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "salesdeskctl",
		Short:         "Sales desk command line",
		Long:          "salesdeskctl signs in to the shop backend and works with products, orders and background jobs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.store == nil {
				return nil
			}
			return c.store.Save()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.statePath, "state", "", "session state file (default: user config dir)")
	flags.StringVar(&c.apiURL, "api", "", "backend base URL (default: API_BASE_URL)")
	flags.StringVarP(&c.output, "output", "o", "table", "output format: table or json")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newMenuCmd(c),
		newProductsCmd(c),
		newOrdersCmd(c),
		newJobsCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := app.LoadClientConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.apiURL != "" {
		cfg.APIBaseURL = c.apiURL
	}
	c.cfg = cfg
	c.logger = app.NewCLILogger(cfg)

	if c.statePath == "" {
		if c.statePath, err = session.DefaultStatePath(); err != nil {
			return err
		}
	}
	if c.store, err = session.OpenFileStore(c.statePath); err != nil {
		return err
	}
	c.client, err = api.New(cfg.APIBaseURL,
		api.WithCredentials(func(context.Context) api.Credentials { return c.holder }),
		api.WithLogger(c.logger),
		api.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		return err
	}
	c.holder = session.NewHolder(c.store, c.client, c.logger)
	c.holder.Resume()
	return nil
}

// requireLogin fails unless a usable token is stored.
func (c *cli) requireLogin() error {
	if !c.holder.IsAuthenticated() {
		return errors.New("not signed in, run: salesdeskctl login")
	}
	return nil
}

// requireRole fails unless the signed-in role is one of roles.
func (c *cli) requireRole(roles ...string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	role := c.holder.Role()
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("role %s may not do this", role)
}

// explain turns backend errors into what the user can act on.
func (c *cli) explain(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case api.IsUnauthorized(err):
		// The holder already dropped the token; hooks do not run after a
		// failed command, so persist that here.
		if saveErr := c.store.Save(); saveErr != nil {
			c.logger.Warn("save state", slog.Any("error", saveErr))
		}
		return errors.New("session expired, run: salesdeskctl login")
	case api.IsForbidden(err):
		return errors.New("the backend refused this for your role")
	}
	return errors.New(api.Message(err, err.Error()))
}

func (c *cli) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
