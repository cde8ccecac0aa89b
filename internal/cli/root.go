package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sportbook/internal/api"
	"sportbook/internal/calendar"
	"sportbook/internal/config"
	"sportbook/internal/dispatch"
)

var (
	outputJSON bool
	configPath string
	actAsUser  string
	cfg        *config.Config
	client     *api.Client
)

var rootCmd = &cobra.Command{
	Use:   "sportbookctl",
	Short: "Operator CLI for the sport booking backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		client = api.NewClient(cfg.API.BaseURL, cfg.API.APIKey)
		if actAsUser != "" {
			client = client.ForUser(actAsUser)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute wires the command tree and runs it.
func Execute() {
	rootCmd.AddCommand(availabilityCmd())
	rootCmd.AddCommand(blockCmd())
	rootCmd.AddCommand(unblockCmd())
	rootCmd.AddCommand(bookingsCmd())
	rootCmd.AddCommand(hoursCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SPORTBOOK_CONFIG_PATH"), "Config file path")
	rootCmd.PersistentFlags().StringVar(&actAsUser, "user", "", "Backend user ID to act as")
}

func anchor() calendar.WeekAnchor {
	if cfg != nil && cfg.Calendar.WeekStartsOnMonday {
		return calendar.AnchorMonday
	}
	return calendar.AnchorSunday
}

func hoursDefaults() calendar.HoursDefaults {
	defaults := calendar.DefaultHours
	if cfg != nil && cfg.Calendar.DefaultOpenTime != "" {
		defaults.Open = cfg.Calendar.DefaultOpenTime
	}
	if cfg != nil && cfg.Calendar.DefaultCloseTime != "" {
		defaults.Close = cfg.Calendar.DefaultCloseTime
	}
	return defaults
}

func parseDateInput(input string) (time.Time, error) {
	now := time.Now()
	switch input {
	case "", "today", "hoy":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case "tomorrow", "mañana":
		t := now.AddDate(0, 0, 1)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", input, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", input)
	}
	return parsed, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stdoutNotifier routes dispatcher outcomes to the terminal.
type stdoutNotifier struct{}

func (stdoutNotifier) Success(msg string) { fmt.Println(msg) }
func (stdoutNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, msg) }

func newDispatcher() *dispatch.Dispatcher {
	return dispatch.New(client, stdoutNotifier{}, nil, zerolog.Nop())
}
