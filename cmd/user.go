/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/listingdesk/listingdesk/internal/db"
	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/spf13/cobra"
)

var adminFlags struct {
	email     string
	username  string
	firstName string
	lastName  string
	password  string
}

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage admin accounts",
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Creates an administrator account. The password is read from stdin
when --password is not given. Usage:

	listingdesk user create-admin --email ana@example.org --username ana \
		--first-name Ana --last-name Silva
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadConfig()

		password := adminFlags.password
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		in, errs := forms.ParseNewUser(url.Values{
			"email":            {adminFlags.email},
			"username":         {adminFlags.username},
			"first_name":       {adminFlags.firstName},
			"last_name":        {adminFlags.lastName},
			"password":         {password},
			"confirm_password": {password},
		})
		if len(errs) > 0 {
			return fieldErrors(errs)
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(services.NewStore(store.New(conn)), log)
		user, err := users.CreateAdmin(cmd.Context(), in)
		if err != nil {
			var fieldErrs forms.Errors
			if errors.As(err, &fieldErrs) {
				return fieldErrors(fieldErrs)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func fieldErrors(errs forms.Errors) error {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", field, errs[field]))
	}
	return errors.New(strings.Join(lines, "; "))
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "Email address")
	createAdminCmd.Flags().StringVar(&adminFlags.username, "username", "", "Login name")
	createAdminCmd.Flags().StringVar(&adminFlags.firstName, "first-name", "", "First name")
	createAdminCmd.Flags().StringVar(&adminFlags.lastName, "last-name", "", "Last name")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "Password (read from stdin when empty)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("username")
}
