package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediavault/internal/app"
)

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Maintain the metadata catalog",
}

var catalogMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		status, err := app.MigrateCatalog(cfg)
		if err != nil {
			return fmt.Errorf("migrating catalog: %w", err)
		}
		fmt.Printf("Catalog at schema version %d (latest %d)\n", status.Current, status.Latest)
		return nil
	},
}

var catalogSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the catalog schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		schema, err := app.CatalogSchema(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Println(schema)
		return nil
	},
}

var catalogBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the catalog to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := app.BackupCatalog(cmd.Context(), cfg, args[0]); err != nil {
			return err
		}
		fmt.Printf("Catalog copied to %s\n", args[0])
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readNewPassword()
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "AddUser", false)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.AddUser(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (id %d)\n", user.Name, user.ID)
		return nil
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd NAME",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readNewPassword()
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "ChangePassword", false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ChangePassword(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Printf("Password changed for %s\n", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "StorageStats", false)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.StorageStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Files:     %d (%s)\n", stats.FileCount, formatSize(stats.FileBytes))
		fmt.Printf("Versions:  %d (%s)\n", stats.VersionCount, formatSize(stats.VersionBytes))
		fmt.Printf("Total:     %s\n", formatSize(stats.TotalBytes))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare the blob store with the catalog",
	Long: `Lists stored blobs that no catalog row references and catalog rows whose
blob is missing. With --remove the unreferenced blobs are deleted; run it
while no uploads are in progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetBool("remove")

		a, err := newApp(cmd, "Reconcile", false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Reconcile(cmd.Context(), remove)
		if err != nil {
			return err
		}
		for _, key := range report.Orphans {
			fmt.Printf("orphan   %s\n", key)
		}
		for _, key := range report.Missing {
			fmt.Printf("missing  %s\n", key)
		}
		fmt.Printf("%d orphaned, %d missing, %d removed\n", len(report.Orphans), len(report.Missing), len(report.Removed))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogMigrateCmd)
	catalogCmd.AddCommand(catalogSchemaCmd)
	catalogCmd.AddCommand(catalogBackupCmd)
	rootCmd.AddCommand(catalogCmd)

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userPasswdCmd)
	rootCmd.AddCommand(userCmd)

	rootCmd.AddCommand(statsCmd)

	reconcileCmd.Flags().Bool("remove", false, "Delete unreferenced blobs")
	rootCmd.AddCommand(reconcileCmd)
}
