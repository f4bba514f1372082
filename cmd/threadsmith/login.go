package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/app"
	"github.com/abdulachik/threadsmith/internal/config"
)

var (
	loginTimeout time.Duration
	whoamiTest   bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to X through the backend",
	Long: `Start the X login on the backend and print the authorization URL. Open it
in a browser and approve access; the command waits until the login completes.
The session is kept in SESSION_FILE for later commands.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of X",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in X account",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "How long to wait for the browser login")
	whoamiCmd.Flags().BoolVar(&whoamiTest, "test", false, "Also verify the token against X")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig((*config.Config).ValidateForClient)
	if err != nil {
		return err
	}

	c, err := app.NewClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	authURL, err := c.Session().Login(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser to authorize threadsmith:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()
	fmt.Println("Waiting for login...")

	user, err := c.Session().WaitForLogin(ctx, 2*time.Second)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as @%s\n", user.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig((*config.Config).ValidateForClient)
	if err != nil {
		return err
	}

	c, err := app.NewClient(cfg)
	if err != nil {
		return err
	}

	if err := c.Session().Logout(context.Background()); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig((*config.Config).ValidateForClient)
	if err != nil {
		return err
	}

	c, err := app.NewClient(cfg)
	if err != nil {
		return err
	}

	user, err := c.Session().User(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("@%s (id %s)\n", user.Username, user.ID)

	if whoamiTest {
		if err := c.Session().Test(ctx); err != nil {
			return err
		}
		fmt.Println("Token is valid.")
	}
	return nil
}
