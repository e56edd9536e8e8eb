package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/api"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/config"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

func loadClient() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return newAPIClient(cfg)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// --- conversations ---

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Browse stored planning conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		sessionID, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := loadClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		if userID != "" {
			q.Set("user_id", userID)
		}
		if sessionID != "" {
			q.Set("session_id", sessionID)
		}
		resp, err := client.get(cmd.Context(), "/conversations?"+q.Encode())
		if err != nil {
			return err
		}

		var convs []wedding.Conversation
		if err := decodeJSON(resp, &convs); err != nil {
			return err
		}
		printConversations(convs)
		return nil
	},
}

func printConversations(convs []wedding.Conversation) {
	if len(convs) == 0 {
		fmt.Println("No conversations found.")
		return
	}
	for _, c := range convs {
		last := ""
		for i := len(c.Messages) - 1; i >= 0; i-- {
			if c.Messages[i].Role == wedding.RoleUser {
				last = c.Messages[i].Content
				break
			}
		}
		fmt.Printf("%s  %s  %3d msgs  %s\n",
			colorize(stepColor, c.ID),
			c.UpdatedAt.Format("2006-01-02 15:04"),
			len(c.Messages),
			truncate(last, 60),
		)
	}
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		client, err := loadClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/conversations/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var conv wedding.Conversation
		if err := decodeJSON(resp, &conv); err != nil {
			return err
		}
		return writeFormatted(os.Stdout, format, conv)
	},
}

func init() {
	conversationsListCmd.Flags().String("user", "", "only conversations of this user id")
	conversationsListCmd.Flags().String("session", "", "only conversations of this session id")
	conversationsListCmd.Flags().Int("limit", 20, "maximum number of conversations to list")
	conversationsShowCmd.Flags().String("format", "json", "output format: json or yaml")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
}

// --- projects ---

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Browse projects saved to the dashboard",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's saved projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		client, err := loadClient()
		if err != nil {
			return err
		}
		q := url.Values{"user_id": {userID}, "limit": {strconv.Itoa(limit)}}
		resp, err := client.get(cmd.Context(), "/projects?"+q.Encode())
		if err != nil {
			return err
		}

		var projects []wedding.ProjectRecord
		if err := decodeJSON(resp, &projects); err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %s  %s\n",
				colorize(stepColor, p.ID),
				p.CreatedAt.Format("2006-01-02 15:04"),
				p.Title,
			)
		}
		return nil
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		client, err := loadClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/projects/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var rec wedding.ProjectRecord
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}
		return writeFormatted(os.Stdout, format, rec)
	},
}

func init() {
	projectsListCmd.Flags().String("user", "", "owner user id (required)")
	projectsListCmd.Flags().Int("limit", 20, "maximum number of projects to list")
	projectsShowCmd.Flags().String("format", "yaml", "output format: json or yaml")
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
}

// --- vendors ---

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Manage the vendor directory",
}

var vendorsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a vendor",
	Long: `Add or update a vendor in the directory.

Examples:
  vibewedding vendors add --name "Château de Lyon" --category lieu --city Lyon --price 4500
  vibewedding vendors add --id v-12 --name "Fleurs d'Annecy" --city Annecy --email contact@fleurs.fr`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vendorFromFlags(cmd)
		if err != nil {
			return err
		}

		client, err := loadClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/vendors", v)
		if err != nil {
			return err
		}
		var created api.CreatedResponse
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}
		printSuccess("Saved vendor %s", created.ID)
		return nil
	},
}

func vendorFromFlags(cmd *cobra.Command) (wedding.Vendor, error) {
	f := cmd.Flags()
	v := wedding.Vendor{}
	v.ID, _ = f.GetString("id")
	v.Name, _ = f.GetString("name")
	v.Category, _ = f.GetString("category")
	v.City, _ = f.GetString("city")
	v.Region, _ = f.GetString("region")
	v.Description, _ = f.GetString("description")
	v.Website, _ = f.GetString("website")
	v.Email, _ = f.GetString("email")
	if v.Name == "" {
		return wedding.Vendor{}, fmt.Errorf("--name is required")
	}
	if f.Changed("price") {
		price, _ := f.GetInt("price")
		if price < 0 {
			return wedding.Vendor{}, fmt.Errorf("--price must not be negative")
		}
		v.PriceFrom = wedding.IntPtr(price)
	}
	return v, nil
}

var vendorsSearchCmd = &cobra.Command{
	Use:   "search <city>",
	Short: "Find vendors whose city contains the given text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := loadClient()
		if err != nil {
			return err
		}
		q := url.Values{"city": {args[0]}, "limit": {strconv.Itoa(limit)}}
		resp, err := client.get(cmd.Context(), "/vendors?"+q.Encode())
		if err != nil {
			return err
		}

		var found []wedding.Vendor
		if err := decodeJSON(resp, &found); err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Println("No vendors found.")
			return nil
		}
		for _, v := range found {
			fmt.Println(vendorLine(v))
		}
		return nil
	},
}

func vendorLine(v wedding.Vendor) string {
	line := colorize(boldColor, v.Name)
	if v.Category != "" {
		line += " (" + v.Category + ")"
	}
	if v.City != "" {
		line += " - " + v.City
	}
	if v.PriceFrom != nil {
		line += fmt.Sprintf(" - à partir de %d €", *v.PriceFrom)
	}
	return line
}

func init() {
	vendorsAddCmd.Flags().String("id", "", "vendor id (generated when empty)")
	vendorsAddCmd.Flags().String("name", "", "vendor name (required)")
	vendorsAddCmd.Flags().String("category", "", "vendor category")
	vendorsAddCmd.Flags().String("city", "", "city")
	vendorsAddCmd.Flags().String("region", "", "region")
	vendorsAddCmd.Flags().String("description", "", "short description")
	vendorsAddCmd.Flags().Int("price", 0, "starting price in euros")
	vendorsAddCmd.Flags().String("website", "", "website URL")
	vendorsAddCmd.Flags().String("email", "", "contact email")
	vendorsSearchCmd.Flags().Int("limit", 6, "maximum number of vendors")
	vendorsCmd.AddCommand(vendorsAddCmd)
	vendorsCmd.AddCommand(vendorsSearchCmd)
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

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(boldColor, k.Key), k.Value, colorize(stepColor, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
