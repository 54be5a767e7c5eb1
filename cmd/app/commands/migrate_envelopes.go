package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	assetUseCase "github.com/allisson/streamvault/internal/asset/usecase"
)

// RunMigrateEnvelopes rewraps every legacy root-secret asset into per-segment
// DEK envelopes under the active master key. Assets already on per-segment
// envelopes are skipped. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible, and the master key
// chain must include every key referenced by stored envelopes.
func RunMigrateEnvelopes(
	ctx context.Context,
	migrationUseCase assetUseCase.MigrationUseCase,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	logger.Info("migrating legacy envelopes")

	report, err := migrationUseCase.MigrateEnvelopes(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate envelopes: %w", err)
	}

	if format == "json" {
		if err := outputMigrationJSON(w, report); err != nil {
			return err
		}
	} else {
		outputMigrationText(w, report)
	}

	logger.Info("envelope migration completed",
		slog.Int("assets_migrated", report.AssetsMigrated),
		slog.Int("segments_rewrapped", report.SegmentsRewrapped),
		slog.Int("assets_skipped", report.AssetsSkipped),
	)

	return nil
}

func outputMigrationText(w io.Writer, report assetUseCase.MigrationReport) {
	fmt.Fprintf(w, "Migrated %d asset(s), rewrapped %d segment(s), skipped %d asset(s)\n",
		report.AssetsMigrated, report.SegmentsRewrapped, report.AssetsSkipped)
}

func outputMigrationJSON(w io.Writer, report assetUseCase.MigrationReport) error {
	result := map[string]interface{}{
		"assets_migrated":    report.AssetsMigrated,
		"segments_rewrapped": report.SegmentsRewrapped,
		"assets_skipped":     report.AssetsSkipped,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(w, string(jsonBytes))
	return nil
}
