package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signbridge/internal/auth"
	"signbridge/internal/config"
	"signbridge/internal/services/identity"
	"signbridge/internal/status"
)

type authFlags struct {
	name     string
	email    string
	password string
	confirm  string
}

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Create an account, log in, or log out",
	}
	authCmd.AddCommand(newAuthSignupCommand(ctx))
	authCmd.AddCommand(newAuthLoginCommand(ctx))
	authCmd.AddCommand(newAuthLogoutCommand(ctx))
	return authCmd
}

func newAuthSignupCommand(ctx *commandContext) *cobra.Command {
	var flags authFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			form := auth.SignupForm{
				Name:     p.value("Name", flags.name),
				Email:    p.value("Email", flags.email),
				Password: p.value("Password", flags.password),
				Confirm:  p.value("Confirm password", flags.confirm),
			}
			return runAuth(cmd, ctx, func(svc *auth.Service, runCtx context.Context) error {
				_, err := svc.Signup(runCtx, form)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "Display name")
	cmd.Flags().StringVar(&flags.email, "email", "", "Email address")
	cmd.Flags().StringVar(&flags.password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&flags.confirm, "confirm", "", "Password confirmation (prompted when omitted)")
	return cmd
}

func newAuthLoginCommand(ctx *commandContext) *cobra.Command {
	var flags authFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			form := auth.LoginForm{
				Email:    p.value("Email", flags.email),
				Password: p.value("Password", flags.password),
			}
			return runAuth(cmd, ctx, func(svc *auth.Service, runCtx context.Context) error {
				user, err := svc.Login(runCtx, form)
				if err == nil && user != nil {
					printUser(cmd.OutOrStdout(), user)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&flags.email, "email", "", "Email address")
	cmd.Flags().StringVar(&flags.password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newAuthLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, ctx, func(svc *auth.Service, runCtx context.Context) error {
				return svc.Logout(runCtx)
			})
		},
	}
}

// runAuth wires an auth service to the terminal, runs action, and waits for
// the delayed navigation so the confirmation is seen before the route prints.
func runAuth(cmd *cobra.Command, cc *commandContext, action func(*auth.Service, context.Context) error) error {
	cfg := cc.configValue()
	logger := cc.log()
	term := newTerminal(cmd.OutOrStdout())

	board := status.NewBoard(status.WithTTL(cfg.StatusTTL()), status.WithLogger(logger))
	board.Subscribe(term.Status)

	client := identity.NewClient(identity.Config{
		APIKey:  cfg.Identity.APIKey,
		BaseURL: cfg.Identity.BaseURL,
	}, identity.WithLogger(logger))

	navigated := make(chan string, 1)
	svc := auth.NewService(client, board, auth.NavigatorFunc(func(route string) {
		navigated <- route
	}), authSettings(cfg), auth.WithLogger(logger))

	runCtx, cancel := signalContext(cmd)
	defer cancel()
	if err := action(svc, runCtx); err != nil {
		return err
	}

	select {
	case route := <-navigated:
		term.println(fmt.Sprintf("-> %s", route))
	case <-runCtx.Done():
		svc.CancelNavigation()
	}
	return nil
}

func authSettings(cfg *config.Config) auth.Settings {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return auth.Settings{
		MinPasswordLength: cfg.Identity.MinPasswordLength,
		Login:             auth.Redirect{Route: cfg.Identity.LoginRedirect, Delay: ms(cfg.Identity.LoginDelayMS)},
		Signup:            auth.Redirect{Route: cfg.Identity.SignupRedirect, Delay: ms(cfg.Identity.SignupDelayMS)},
		Logout:            auth.Redirect{Route: cfg.Identity.LogoutRedirect, Delay: ms(cfg.Identity.LogoutDelayMS)},
	}
}

func printUser(out io.Writer, user *identity.User) {
	expires := ""
	if !user.ExpiresAt.IsZero() {
		expires = user.ExpiresAt.Local().Format("15:04:05")
	}
	fmt.Fprintln(out, renderTable(
		[]string{"User", "Email", "UID", "Token expires"},
		[][]string{{user.DisplayName, user.Email, user.UID, expires}},
	))
}

// prompter fills empty flag values from stdin.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) value(label, current string) string {
	if current != "" {
		return current
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return ""
	}
	return strings.TrimRight(line, "\r\n")
}
