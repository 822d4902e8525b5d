package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.saveCredentials(resp.Token, resp.UserName); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}

			name := resp.UserName
			if name == "" {
				if id, err := session.FromToken(resp.Token); err == nil {
					name = id.UserName
				}
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", session.DisplayName(&model.Identity{UserName: name}, false))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var req model.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Register(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Account created. Run `querynest login` to sign in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.UserName, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.credentials == "" {
				return nil
			}
			if err := os.Remove(a.credentials); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the saved token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := session.Resolve(cmd.Context(), a.client)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s", id.UserName)
			if id.Email != "" {
				fmt.Fprintf(a.out, " <%s>", id.Email)
			}
			if id.Role != "" {
				fmt.Fprintf(a.out, " (%s)", id.Role)
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}
}
