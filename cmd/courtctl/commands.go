package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codr1/courtsync/internal/app"
	"github.com/codr1/courtsync/internal/calsync"
	"github.com/codr1/courtsync/internal/config"
)

func init() {
	syncCmd.Flags().String("window", string(calsync.WindowToday), "Reservation window to reconcile: today, month or all")
	syncCmd.Flags().Bool("force", false, "Mark every confirmed reservation pending and resync all of them")
	syncCmd.Flags().Int64("reservation", 0, "Sync a single reservation by id")

	migrateCmd.Flags().Int("steps", 1, "Number of migrations to roll back with down")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a calendar reconciliation pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			flags := cmd.Flags()
			force, _ := flags.GetBool("force")
			windowName, _ := flags.GetString("window")
			reservationID, _ := flags.GetInt64("reservation")

			if reservationID > 0 {
				if err := a.Engine.SyncOne(ctx, reservationID); err != nil {
					return fmt.Errorf("sync reservation %d: %w", reservationID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reservation %d synced\n", reservationID)
				return nil
			}

			var (
				report calsync.RunReport
				err    error
			)
			if force {
				report, err = a.Engine.ForceResync(ctx)
			} else {
				window, parseErr := calsync.ParseWindow(windowName)
				if parseErr != nil {
					return parseErr
				}
				report, err = a.Engine.Run(ctx, window)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete external events of cancelled reservations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			swept, failed, err := a.Engine.SweepCancelled(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"swept": swept, "failed": failed})
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print reservation sync counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			counts, err := a.Engine.Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), counts)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Manage the database schema",
	Long:      "Opening the database applies pending migrations, so up only reports the resulting version.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if args[0] == "down" {
				steps, _ := cmd.Flags().GetInt("steps")
				if err := a.DB.MigrateDown(steps); err != nil {
					return err
				}
				log.Ctx(ctx).Info().Int("steps", steps).Msg("Migrations rolled back")
			}
			version, dirty, err := a.DB.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s, Dirty: %v\n", strconv.FormatUint(uint64(version), 10), dirty)
			return nil
		})
	},
}

// withApp loads configuration, builds the services and runs fn with a
// context carrying the command logger.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := log.Logger.With().Str("command", cmd.Name()).Logger().WithContext(cmd.Context())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to close services")
		}
	}()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
