package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/khula/khulasync/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "khulasync-cli",
		Short: "KhulaSync CLI tool",
		Long:  `A command line interface for inspecting and driving the KhulaSync API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the KhulaSync API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	// Sync commands
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync queue operations",
	}

	syncCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show connectivity and pending queue depth",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/sync/status", printSyncStatus)
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "now",
		Short: "Trigger an immediate drain of the sync queue",
		Run: func(cmd *cobra.Command, args []string) {
			postJSON("/api/v1/sync/now", printSyncStatus)
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "queue",
		Short: "List pending mutations in drain order",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/sync/queue", printQueue)
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered mutations",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/sync/dead", printQueue)
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "requeue [id]",
		Short: "Move a dead-lettered mutation back into the queue",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			postJSON("/api/v1/sync/queue/"+args[0]+"/requeue", func(result map[string]any) {
				fmt.Printf("Requeued: %s\n", result["id"])
			})
		},
	})

	rootCmd.AddCommand(syncCmd)

	// Payment commands
	paymentsCmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment operations",
	}

	paymentsCmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List payments staged while offline",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/payments/offline", printOfflinePayments)
		},
	})

	paymentsCmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Replay staged payments against the live providers",
		Run: func(cmd *cobra.Command, args []string) {
			postJSON("/api/v1/payments/replay", printReplay)
		},
	})

	paymentsCmd.AddCommand(&cobra.Command{
		Use:   "status [id]",
		Short: "Resolve the status of a payment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/payments/"+args[0]+"/status", func(result map[string]any) {
				fmt.Printf("Payment: %s\nStatus: %s\n", result["id"], result["status"])
			})
		},
	})

	rootCmd.AddCommand(paymentsCmd)

	// Migration commands (run locally, no API involved)
	var databaseURL, migrationsPath string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "migrations", "Path to the migrations directory")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if err := postgres.RunMigrations(databaseURL, migrationsPath); err != nil {
				fmt.Printf("Migration failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations applied")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Run: func(cmd *cobra.Command, args []string) {
			if err := postgres.RunMigrationsDown(databaseURL, migrationsPath); err != nil {
				fmt.Printf("Rollback failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migration rolled back")
		},
	})

	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func getJSON(path string, print func(map[string]any)) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	handleResponse(resp, print)
}

func postJSON(path string, print func(map[string]any)) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", nil)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	handleResponse(resp, print)
}

func handleResponse(resp *http.Response, print func(map[string]any)) {
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	print(result)
}

func printSyncStatus(result map[string]any) {
	fmt.Printf("Online: %v\n", result["online"])
	fmt.Printf("Pending: %v\n", result["pendingCount"])
}

func printQueue(result map[string]any) {
	items, _ := result["items"].([]any)
	fmt.Printf("Items: %d\n", len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("  %s  %s %s/%s  attempts=%v", item["id"], item["operation"], item["entityType"], item["entityId"], item["attempts"])
		if lastErr, ok := item["lastError"].(string); ok && lastErr != "" {
			fmt.Printf("  lastError=%q", lastErr)
		}
		fmt.Println()
	}
}

func printOfflinePayments(result map[string]any) {
	payments, _ := result["payments"].([]any)
	fmt.Printf("Staged payments: %d\n", len(payments))
	for _, raw := range payments {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("  %s  %v  status=%v\n", p["id"], p["display"], p["status"])
	}
}

func printReplay(result map[string]any) {
	replayed, _ := result["replayed"].([]any)
	fmt.Printf("Replayed: %d\n", len(replayed))
	for _, raw := range replayed {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("  %s  provider=%v status=%v\n", p["id"], p["provider"], p["status"])
	}
}
