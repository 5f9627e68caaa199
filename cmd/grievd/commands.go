package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mkale/grievd/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the grievance assistant",
	Long: `Talk to the grievance assistant.

With a message argument, sends a single turn and prints the reply.
Without arguments, opens an interactive session (Ctrl-D to exit).

Examples:
  grievd chat "I want to file a complaint"
  grievd chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) > 0 {
			reply, err := sendChat(cmd.Context(), client, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		}

		// Interactive mode: one session across turns.
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Fprintln(os.Stderr, colorize(colorCyan, "Connected. Type your message (Ctrl-D to exit)."))
		for {
			fmt.Fprint(os.Stderr, colorize(colorBold, "> "))
			if !scanner.Scan() {
				fmt.Fprintln(os.Stderr)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			reply, err := sendChat(cmd.Context(), client, sessionID, line)
			if err != nil {
				printError("%v", err)
				continue
			}
			fmt.Println(reply)
		}
	},
}

func sendChat(ctx context.Context, client *apiClient, sessionID, message string) (string, error) {
	body := map[string]string{"session_id": sessionID, "message": message}
	resp, err := client.post(ctx, "/api/chat", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Reply string `json:"reply"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return result.Reply, nil
}

func init() {
	chatCmd.Flags().String("session", "", "session id to continue (default: new session)")
}

// --- complaints ---

var complaintsCmd = &cobra.Command{
	Use:   "complaints",
	Short: "Inspect and triage complaints",
}

var complaintsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent complaints (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/api/admin/complaints?limit=%d", limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var complaints []struct {
			TrackingID string `json:"tracking_id"`
			Status     string `json:"status"`
			Department string `json:"department"`
			Category   string `json:"category"`
			Priority   string `json:"priority"`
			CreatedAt  string `json:"created_at"`
		}
		if err := decodeJSON(resp, &complaints); err != nil {
			return err
		}

		if len(complaints) == 0 {
			fmt.Println("No complaints found.")
			return nil
		}

		for _, c := range complaints {
			fmt.Printf("%s  %-11s  %-8s  %s / %s  %s\n",
				colorize(colorCyan, c.TrackingID),
				c.Status,
				c.Priority,
				c.Department,
				c.Category,
				c.CreatedAt,
			)
		}
		return nil
	},
}

var complaintsShowCmd = &cobra.Command{
	Use:   "show <tracking-id>",
	Short: "Show a complaint's public status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/complaints/"+strings.ToUpper(args[0]))
		if err != nil {
			return err
		}

		var c struct {
			TrackingID string `json:"tracking_id"`
			Status     string `json:"status"`
			Department string `json:"department"`
			Category   string `json:"category"`
			Priority   string `json:"priority"`
			AdminReply string `json:"admin_reply"`
			CreatedAt  string `json:"created_at"`
		}
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		printStatus("Tracking ID", "%s", c.TrackingID)
		printStatus("Status", "%s", c.Status)
		printStatus("Department", "%s", c.Department)
		printStatus("Category", "%s", c.Category)
		printStatus("Priority", "%s", c.Priority)
		printStatus("Filed", "%s", c.CreatedAt)
		if c.AdminReply != "" {
			printStatus("Admin note", "%s", c.AdminReply)
		}
		return nil
	},
}

var complaintsSetStatusCmd = &cobra.Command{
	Use:   "set-status <tracking-id> <status>",
	Short: "Update a complaint's status (admin)",
	Long: `Update a complaint's status (admin).

Status must be one of: Pending, "In Progress", Resolved, Rejected.

Examples:
  grievd complaints set-status GR518582ZTBEMB Resolved --reply "Pothole filled on 12 May."`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		trackingID, status := strings.ToUpper(args[0]), args[1]
		reply, _ := cmd.Flags().GetString("reply")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"status": status, "admin_reply": reply}
		resp, err := client.patch(cmd.Context(), "/api/admin/complaints/"+trackingID, body)
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s is now %s", trackingID, status)
		return nil
	},
}

func init() {
	complaintsListCmd.Flags().Int("limit", 20, "maximum number of complaints to list")
	complaintsSetStatusCmd.Flags().String("reply", "", "note to show the submitter")
	complaintsCmd.AddCommand(complaintsListCmd)
	complaintsCmd.AddCommand(complaintsShowCmd)
	complaintsCmd.AddCommand(complaintsSetStatusCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("usage: grievd config set <key> <value> (keys: %s)",
				strings.Join(config.ValidKeys(), ", "))
		}
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
