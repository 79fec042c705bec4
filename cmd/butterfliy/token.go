package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"butterfliy/pkg/auth"
	"butterfliy/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newTokenCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored API access token",
		Long: `Manage API access tokens, one per profile.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - BUTTERFLIY_ACCESS_TOKEN environment variable (read-only)

Never share your tokens or config files!`,
	}
	cmd.PersistentFlags().String("profile", "", "token profile (default from config)")

	manager := func(cmd *cobra.Command) (*auth.Manager, error) {
		cfg, err := g.loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		return auth.NewManager(&cfg.Auth, logger.GetLogger())
	}

	setCmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store an access token",
		Long: `Store an access token for the profile. Without an argument the token is
read from standard input, hidden when it is a terminal.`,
		Example: `  # Interactive, input hidden
  butterfliy token set

  # From a secret manager
  vault read -field=token secret/butterfliy | butterfliy token set --profile ci`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}

			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				if token, err = readToken(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
			}

			if err := m.Save(m.Profile(), token); err != nil {
				return err
			}
			g.printer.Success("Token saved for profile %s", m.Profile())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := m.Delete(m.Profile()); err != nil {
				if errors.Is(err, auth.ErrTokenNotFound) {
					g.printer.Warning("No token stored for profile %s", m.Profile())
					return nil
				}
				return err
			}
			g.printer.Success("Token removed for profile %s", m.Profile())
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}

			g.printer.Info("Profile", m.Profile())
			token, err := m.Load(m.Profile())
			if err != nil {
				if errors.Is(err, auth.ErrTokenNotFound) {
					g.printer.Info("Token", "not set")
					return nil
				}
				return err
			}
			g.printer.Info("Token", auth.MaskToken(token.AccessToken))
			if !token.SavedAt.IsZero() {
				g.printer.Info("Saved", token.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.AddCommand(setCmd, clearCmd, statusCmd)
	return cmd
}

// readToken reads a token without echo from a terminal, or a single line
// from any other reader
func readToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Access token: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
