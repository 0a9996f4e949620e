package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"callqa/internal/auth"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var username string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store a bearer token",
		Long: `Exchange a username and password for a bearer token and store it in the
configured token file. Without --password the password is prompted for on a
terminal, or read from the first line of stdin otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				var err error
				password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			resp, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			store, err := ctx.tokenStore()
			if err != nil {
				return err
			}
			if err := store.Save(auth.Session{
				AccessToken: resp.AccessToken,
				TokenType:   resp.TokenType,
				Username:    resp.User.Username,
				FullName:    resp.User.FullName,
				SavedAt:     time.Now().UTC(),
			}); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			name := resp.User.FullName
			if name == "" {
				name = resp.User.Username
			}
			fmt.Fprintf(out, "Logged in as %s\n", name)
			if resp.User.RequiresPasswordChange {
				fmt.Fprintln(out, renderStatusLine("Password", statusWarn, "change required on the web interface", shouldColorize(out)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	return cmd
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		secret, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required")
	}
	return line, nil
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.tokenStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed token at %s\n", store.Path())
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the current token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			user, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, user)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Username:", user.Username)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Name:", valueOrDash(user.FullName))
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Active:", yesNo(user.Active))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
