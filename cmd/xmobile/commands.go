package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-mobile/internal/bootstrap"
	"github.com/creamcroissant/xboard-mobile/internal/job"
	"github.com/creamcroissant/xboard-mobile/internal/migrations"
	"github.com/creamcroissant/xboard-mobile/internal/service"
)

func init() {
	// Migrate
	var migrateStatus bool
	var migrateRollback bool
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Manage the mobile API tables in the bot database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			fmt.Printf("Using DB path: %s\n", cfg.DB.Path)
			defer db.Close()

			if migrateStatus {
				return migrations.Status(db)
			}
			if migrateRollback {
				return migrations.Down(db)
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			switch action {
			case "up":
				if err := migrations.Up(db); err != nil {
					return err
				}
				version, err := migrations.Version(db)
				if err != nil {
					return err
				}
				fmt.Printf("Schema at version %d\n", version)
				return nil
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)

	// Dev token
	var devTelegramID int64
	var devTokenCmd = &cobra.Command{
		Use:   "dev-token",
		Short: "Issue a development bearer token for the configured dev user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if devTelegramID != 0 {
				cfg.Dev.TelegramID = devTelegramID
			}
			// 命令行签发不依赖 dev.enabled，HTTP 端点仍受其控制。
			cfg.Dev.Enabled = true

			logger, closeLog := newLogger(cfg)
			defer closeLog()

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			tok, err := a.devAuth.Issue(cmd.Context())
			switch {
			case errors.Is(err, service.ErrDevUserUnset):
				return errors.New("dev user telegram id is not set (use --telegram-id or dev.telegram_id)")
			case errors.Is(err, service.ErrNotFound):
				return fmt.Errorf("user with telegram_id=%d not found", cfg.Dev.TelegramID)
			case err != nil:
				return err
			}
			tok.Warning = a.i18n.Translate(cfg.Mobile.DefaultLanguage, "dev.warning")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tok)
		},
	}
	devTokenCmd.Flags().Int64Var(&devTelegramID, "telegram-id", 0, "Telegram ID of the user (overrides dev.telegram_id)")
	rootCmd.AddCommand(devTokenCmd)

	// Panel
	var panelCmd = &cobra.Command{
		Use:   "panel",
		Short: "VPN panel utilities",
	}
	var panelTelegramID int64
	var panelCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Probe the panel API and optionally look up a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := newLogger(cfg)
			defer closeLog()

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.panel.Configured() {
				return errors.New("panel.base_url and panel.api_key must be configured")
			}

			scheduler := job.NewScheduler(logger)
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Panel.Timeout*time.Duration(cfg.Panel.Retry.MaxRetries+2))
			defer cancel()
			if err := scheduler.RunNow(ctx, job.NewPanelProbeJob(a.panel, logger)); err != nil {
				return err
			}
			fmt.Printf("Panel %s is healthy\n", cfg.Panel.BaseURL)

			if panelTelegramID == 0 {
				return nil
			}
			users, err := a.panel.FindUsersByTelegramID(ctx, panelTelegramID)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Printf("No panel users for telegram_id=%d\n", panelTelegramID)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UUID\tUSERNAME\tSTATUS\tEXPIRES\tSUBSCRIPTION")
			for _, u := range users {
				expires := "-"
				if u.ExpireAt != nil {
					expires = u.ExpireAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.UUID, u.Username, u.Status, expires, u.SubscriptionURL)
			}
			return w.Flush()
		},
	}
	panelCheckCmd.Flags().Int64Var(&panelTelegramID, "telegram-id", 0, "Also list panel users bound to this Telegram ID")
	panelCmd.AddCommand(panelCheckCmd)
	rootCmd.AddCommand(panelCmd)

	// Version
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xmobile %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	})
}
