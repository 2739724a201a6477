package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpgjournals/credstore/password"
)

var errPasswordMismatch = errors.New("password does not match hash")

func newHashPasswordCommand(a *app) *cobra.Command {
	var plain string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Args:  cobra.NoArgs,
		Short: "Hash a password with the configured PBKDF2 parameters",
		Long: `Hash a password for seeding the users table. The password is read
from --password or, when absent, from the first line of stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordInput(plain, cmd.InOrStdin())
			if err != nil {
				return err
			}
			hasher, err := a.hasher()
			if err != nil {
				return err
			}
			encoded, err := hasher.Hash(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&plain, "password", "p", "", "password to hash")
	return cmd
}

func newVerifyPasswordCommand(a *app) *cobra.Command {
	var plain string

	cmd := &cobra.Command{
		Use:   "verify-password <hash>",
		Args:  cobra.ExactArgs(1),
		Short: "Check a password against a stored salt:key hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordInput(plain, cmd.InOrStdin())
			if err != nil {
				return err
			}
			hasher, err := a.hasher()
			if err != nil {
				return err
			}
			if !hasher.Verify(pw, args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), "mismatch")
				return errPasswordMismatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "match")
			return nil
		},
	}

	cmd.Flags().StringVarP(&plain, "password", "p", "", "password to check")
	return cmd
}

func (a *app) hasher() (*password.PBKDF2, error) {
	cfg := a.settings.Store.Password
	return password.NewPBKDF2(password.Config{
		Iterations: cfg.Iterations,
		SaltLength: cfg.SaltLength,
		KeyLength:  cfg.KeyLength,
	})
}

func passwordInput(flagValue string, in io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
