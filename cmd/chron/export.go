package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chronicle/internal/archive"
)

var exportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Export a table's activity log as JSONL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")

		ctx := context.Background()

		if toS3 {
			if cfg.ExportS3Bucket == "" {
				return fmt.Errorf("--s3 requires CHRON_EXPORT_S3_BUCKET")
			}
			var buf bytes.Buffer
			if err := archive.ExportJSONL(ctx, pgStore, args[0], &buf); err != nil {
				return err
			}
			dest, err := archive.NewS3Destination(ctx,
				cfg.ExportS3Bucket, cfg.ExportS3Prefix, cfg.ExportS3Region, cfg.ExportS3Endpoint)
			if err != nil {
				return err
			}
			if err := dest.Write(ctx, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Exported %s to s3://%s/%s\n", args[0], cfg.ExportS3Bucket, cfg.ExportS3Prefix)
			return nil
		}

		var w io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return archive.ExportJSONL(ctx, pgStore, args[0], w)
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "write to a file instead of stdout")
	exportCmd.Flags().Bool("s3", false, "upload to the configured S3 bucket")
}
