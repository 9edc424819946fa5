package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/peerpay/internal/infrastructure/config"
	"github.com/iho/peerpay/internal/infrastructure/logger"
	"github.com/iho/peerpay/internal/infrastructure/postgres"
)

var (
	baseURL string
	token   string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "peerpay-cli",
		Short: "PeerPay CLI tool",
		Long:  `A command line interface for the PeerPay API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the PeerPay API")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("PEERPAY_TOKEN"), "Bearer token (defaults to PEERPAY_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		signupCmd(),
		signinCmd(),
		meCmd(),
		accountsCmd(),
		historyCmd(),
		sendCmd(),
		editCmd(),
		notificationsCmd(),
		migrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signupCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
				"name":     name,
				"email":    email,
				"password": password,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func signinCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Authenticate and print a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodPost, "/api/v1/auth/signin", map[string]string{
				"email":    email,
				"password": password,
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodGet, "/api/v1/me", nil)
		},
	}
}

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List transfer recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodGet, "/api/v1/accounts", nil)
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show transaction history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodGet, "/api/v1/me/transactions", nil)
		},
	}
}

func sendCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "send <receiver-id> <amount>",
		Short: "Send money to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodPost, "/api/v1/transfers", transferBody(args[0], args[1], description, ""))
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Optional description")

	return cmd
}

func editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <transaction-id> <receiver-id> <amount>",
		Short: "Amend the amount of a past transfer you sent",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodPost, "/api/v1/transfers", transferBody(args[1], args[2], "", args[0]))
		},
	}
}

func notificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Poll for new transactions and edits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiRequest(http.MethodPost, "/api/v1/notifications/poll", nil)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Run database migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

			switch args[0] {
			case "up":
				return postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log)
			case "down":
				return postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath, log)
			default:
				return fmt.Errorf("unknown direction %q", args[0])
			}
		},
	}

	return cmd
}

// transferBody builds the request body for a transfer or an edit.
func transferBody(receiverID, amount, description, editTransactionID string) map[string]string {
	body := map[string]string{
		"receiver_id": receiverID,
		"amount":      amount,
	}
	if description != "" {
		body["description"] = description
	}
	if editTransactionID != "" {
		body["edit_transaction_id"] = editTransactionID
	}

	return body
}

func apiRequest(method, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	printJSON(raw)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return nil
}

// printJSON pretty-prints a JSON payload, falling back to raw output.
func printJSON(raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
