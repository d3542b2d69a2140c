package cli

import (
	"context"
	"time"

	"github.com/almikh/pmvgen/internal/catalog"
	"github.com/almikh/pmvgen/internal/ports/adapters/ffmpeg"
	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <folder>...",
		Short: "Sync the source catalog with the given folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args)
		},
	}
	cmd.Flags().String("db", "", "Catalog database path (default $PMVGEN_DB or pmvgen.db)")
	cmd.Flags().String("backup-dir", "backups", "Directory for pre-scan catalog backups")
	return cmd
}

func runScan(cmd *cobra.Command, folders []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	backupDir, _ := cmd.Flags().GetString("backup-dir")
	if dbPath == "" {
		dbPath = getenvDefault("PMVGEN_DB", "pmvgen.db")
	}
	logger := newLogger()

	db, err := catalog.Open(dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if backup, err := db.Backup(backupDir); err != nil {
		logger.Warn("catalog backup failed", "error", err)
	} else {
		logger.Info("catalog backed up", "path", backup)
	}

	probe := ffmpeg.New(
		getenvDefault("PMVGEN_FFMPEG", "ffmpeg"),
		getenvDefault("PMVGEN_FFPROBE", "ffprobe"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	stats, err := catalog.NewScanner(db, probe, logger).Run(ctx, folders)
	if err != nil {
		return err
	}
	cmd.Printf("scanned %d files: %d added, %d updated, %d missing, %d merged, %d failed\n",
		stats.Seen, stats.Added, stats.Updated, stats.Missing, stats.Merged, stats.Failed)
	return nil
}
