package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"igdl/pkg/auth"
	"igdl/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram accounts",
	Long: `Manage stored Instagram accounts.

Accounts are kept in the system keychain when one is available, otherwise in
an encrypted file under the igdl config directory. IGDL_USERNAME and
IGDL_PASSWORD are always honoured and take precedence.

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an account",
	Example: `  # Prompt for username and password
  igdl auth login

  # Prompt only for the password
  igdl auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored account",
	Long: `Remove a stored account.

Without a username you are shown the stored accounts to choose from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var name string
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	prompt := auth.NewPrompter()
	if name != "" {
		if _, err := manager.Load(name); err == nil {
			answer, _ := prompt.Line(fmt.Sprintf("Account '%s' already exists. Update it? (y/N)", name))
			if !strings.HasPrefix(strings.ToLower(answer), "y") {
				return nil
			}
		}
	}

	account, err := prompt.Account(name)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errors.New("username and password are required")
		}
		return err
	}

	if err := manager.Save(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess("Account saved: " + account.Username)
	fmt.Println("\nDownload without -u/-p from now on:")
	fmt.Println("  igdl https://www.instagram.com/<profile>/")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) > 0 {
		return removeAccount(manager, args[0])
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	prompt := auth.NewPrompter()
	if len(accounts) == 1 {
		answer, _ := prompt.Line(fmt.Sprintf("Remove account '%s'? (y/N)", accounts[0].Username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
		return removeAccount(manager, accounts[0].Username)
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  0. Cancel\n\n")

	answer, _ := prompt.Line("Choice")
	choice, err := strconv.Atoi(answer)
	switch {
	case err != nil || choice < 0 || choice > len(accounts):
		return errors.New("invalid choice")
	case choice == 0:
		return nil
	}
	return removeAccount(manager, accounts[choice-1].Username)
}

func removeAccount(manager *auth.Manager, name string) error {
	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove account %s: %w", name, err)
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'igdl auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	lines := lo.Map(accounts, func(a *auth.Account, i int) string {
		modified := "unknown"
		if !a.LastModified.IsZero() {
			modified = a.LastModified.Format("2006-01-02 15:04:05")
		}
		return fmt.Sprintf("%d. %s\n   Password: %s\n   Last Modified: %s", i+1, a.Username, auth.Mask(a.Password), modified)
	})
	fmt.Println(strings.Join(lines, "\n\n"))
	return nil
}
