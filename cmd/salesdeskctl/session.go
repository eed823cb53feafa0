package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/view"
)

const passwordEnv = "SALESDESK_PASSWORD"

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the token for later commands",
		Long: "Sign in with email and password. The password is taken from --password, " +
			"then $" + passwordEnv + ", then the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if err := c.holder.Login(cmd.Context(), email, password); err != nil {
				if api.IsUnauthorized(err) {
					return errors.New(auth.MsgBadCredentials)
				}
				return c.explain(err)
			}
			id, _ := c.holder.Identity()
			fmt.Fprintf(cmd.OutOrStdout(), "Đăng nhập thành công: %s (%s)\n", id.FullName, view.RoleLabel(id.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.holder.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Đã đăng xuất")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				if c.holder.LoadFromPersistedState(cmd.Context()) != session.StateAuthenticated {
					return c.requireLogin()
				}
			}
			if err := c.requireLogin(); err != nil {
				return err
			}
			id, _ := c.holder.Identity()
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), id)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", id.FullName, id.Email)
			fmt.Fprintf(out, "Vai trò: %s\n", view.RoleLabel(id.Role))
			if exp, ok := c.holder.ExpiresAt(); ok {
				fmt.Fprintf(out, "Hết hạn: %s\n", exp.Local().Format("02/01/2006 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "validate the stored token with the backend")
	return cmd
}

func newMenuCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Print the navigation menu visible to the signed-in role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			tree, err := rbac.DefaultMenu()
			if err != nil {
				return err
			}
			visible := rbac.FilterMenu(tree, c.holder.Role())
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), visible)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(visible)
		},
	}
}
