package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cookiesync/internal/engine"
	"cookiesync/internal/scheduler"
)

var errDisabled = errors.New("cookie sync is disabled: check cookiecloud.enable and the COOKIECLOUD_* environment variables")

func newRefreshCmd(configPath *string) *cobra.Command {
	var (
		force    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "refresh [platform...]",
		Short: "Resolve and persist cookies for the given platforms (default: all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(*configPath)
			if err != nil {
				return err
			}
			defer app.close()
			if !app.cfg.Enabled {
				return errDisabled
			}

			runCycle := func(ctx context.Context) {
				printOutcomes(app.orch.Refresh(ctx, args, force))
			}
			if interval <= 0 {
				sched := scheduler.New(0, runCycle)
				sched.RunOnce(cmd.Context())
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Printf("Refreshing every %s, press Ctrl-C to stop.\n", interval)
			scheduler.New(interval, runCycle).Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Bypass the cache and fetch from the remote source")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Keep refreshing on this interval instead of running once")
	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cookie cache state for every platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			fmt.Printf("enabled: %t\n", app.cfg.Enabled)
			for _, st := range app.orch.Status() {
				if !st.Cached {
					fmt.Printf("%s: not cached\n", st.PlatformID)
					continue
				}
				state := "stale"
				if st.Fresh {
					state = "fresh"
				}
				fmt.Printf("%s: %s source=%s age=%ds remaining=%ds last_update=%s\n",
					st.PlatformID, state, st.Source, st.AgeSeconds, st.RemainingSeconds,
					st.LastUpdate.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newTestConnectionCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Perform a diagnostic round trip against the CookieCloud server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(*configPath)
			if err != nil {
				return err
			}
			defer app.close()
			if !app.cfg.Enabled {
				return errDisabled
			}

			info, err := app.orch.TestConnection(cmd.Context())
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			fmt.Println("Connection OK")
			fmt.Printf("  domains: %d\n", info.TotalDomains)
			fmt.Printf("  cookies: %d\n", info.TotalCookies)
			if info.UpdateTime != "" {
				fmt.Printf("  update_time: %s\n", info.UpdateTime)
			}
			for i, d := range info.SampleDomains {
				fmt.Printf("  %d. %s\n", i+1, d)
			}
			return nil
		},
	}
}

func newPlatformsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List configured platforms and their cookie domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(*configPath)
			if err != nil {
				return err
			}
			defer app.close()
			for _, p := range app.orch.Platforms() {
				fmt.Printf("%s\t%s\t%s\n", p.ID, p.Domain, p.ConfigPath)
			}
			return nil
		},
	}
}

func newClearCacheCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache [platform...]",
		Short: "Invalidate cached cookies (default: all platforms)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(*configPath)
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.orch.ClearCache(args); err != nil {
				return err
			}
			fmt.Println("Cookie cache cleared.")
			return nil
		},
	}
}

func printOutcomes(results map[string]engine.Outcome) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out := results[id]
		line := fmt.Sprintf("%s: %s", id, out.Status)
		if out.NewSource != "" {
			line += fmt.Sprintf(" (source=%s)", out.NewSource)
		}
		if out.Message != "" {
			line += " - " + out.Message
		}
		fmt.Println(line)
	}
}
