/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/listingdesk/listingdesk/internal/db"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/internal/storage"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload every listing as CSV to object storage",
	Long: `Writes every listing as CSV, in the spreadsheet's column order, to the
bucket configured by STORAGE_BACKEND.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadConfig()

		objects, err := storage.Open(cmd.Context(), cfg.Storage)
		if errors.Is(err, storage.ErrDisabled) {
			return errors.New("exports need STORAGE_BACKEND set to gcs or minio")
		}
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		exports := services.NewExportService(services.NewStore(store.New(conn)), objects)
		key, count, err := exports.Export(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Str("key", key).Int("listings", count).Msg("export uploaded")
		fmt.Fprintln(cmd.OutOrStdout(), objects.URL(key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
