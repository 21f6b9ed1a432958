package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/plantscan/internal/config"
	"github.com/rumor-ml/commons.systems/plantscan/internal/extract"
	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pipeline"
	"github.com/rumor-ml/commons.systems/plantscan/internal/summary"
	"github.com/rumor-ml/commons.systems/plantscan/internal/ui"
)

// qualityLevels maps --quality values to recompression settings
var qualityLevels = map[string]pipeline.Quality{
	"best":    pipeline.QualityBest,
	"default": pipeline.QualityDefault,
	"speed":   pipeline.QualitySpeed,
	"none":    pipeline.QualityNone,
}

func parseQuality(s string) (pipeline.Quality, error) {
	level, ok := qualityLevels[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown quality %q (expected best, default, speed or none)", s)
	}
	return level, nil
}

type uploadFlags struct {
	scientistName  string
	scientistEmail string
	uploadedBy     string
	concurrency    int
	quality        string
	store          string
	bucket         string
	prefix         string
	dryRun         bool
}

func newUploadCmd() *cobra.Command {
	var f uploadFlags

	cmd := &cobra.Command{
		Use:   "upload <root> <subdir>",
		Short: "Register and upload every scan under root/subdir",
		Long: `Extract metadata for every scan under root/subdir, register each scan in the
metadata store and upload a recompressed PNG to cloud storage.

Extraction errors stop the command before anything is registered. Once uploading
starts, a failed image is marked ERROR and the remaining images continue.`,
		Example: `  # Upload one wave with attribution
  plantscan upload /data/scans cylinder/W1 \
    --scientist-name "Ada Lovelace" --scientist-email ada@example.org --uploaded-by ada

  # Try the run locally without touching Firestore or GCS
  plantscan upload /data/scans cylinder/W1 --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeUpload(cmd, args[0], args[1], f)
		},
	}

	cmd.Flags().StringVar(&f.scientistName, "scientist-name", "", "Scientist recorded on every scan (overrides fixedValues)")
	cmd.Flags().StringVar(&f.scientistEmail, "scientist-email", "", "Scientist email recorded on every scan (overrides fixedValues)")
	cmd.Flags().StringVar(&f.uploadedBy, "uploaded-by", "", "Uploader recorded on every scan (default: current user when not in fixedValues)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Number of concurrent uploads (default $CONCURRENT_JOBS or 4)")
	cmd.Flags().StringVar(&f.quality, "quality", "best", "PNG recompression: best, default, speed or none")
	cmd.Flags().StringVar(&f.store, "store", "", "Metadata store: firestore or sqlite (default $PLANTSCAN_STORE)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "Destination bucket (default $GCS_BUCKET_NAME)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Object key prefix (default $GCS_PREFIX)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Register in SQLite and write images to $PLANTSCAN_BLOB_DIR")

	return cmd
}

// attribution returns the upload-time fields merged over every record
func (f uploadFlags) attribution() fields.Record {
	return fields.Record{
		ScientistName:  f.scientistName,
		ScientistEmail: f.scientistEmail,
		UploadedBy:     f.uploadedBy,
	}
}

func (f uploadFlags) apply(cfg config.Config) (config.Config, error) {
	if f.store != "" {
		cfg.Store = strings.ToLower(f.store)
	}
	if f.dryRun {
		cfg.Store = config.StoreSQLite
	}
	if f.concurrency != 0 {
		cfg.ConcurrentJobs = f.concurrency
	}
	if f.bucket != "" {
		cfg.GCSBucketName = f.bucket
	}
	if f.prefix != "" {
		cfg.GCSPrefix = f.prefix
	}
	return cfg, cfg.Validate()
}

func executeUpload(cmd *cobra.Command, root, subdir string, f uploadFlags) error {
	ctx := cmd.Context()

	quality, err := parseQuality(f.quality)
	if err != nil {
		return err
	}
	cfg, err := f.apply(config.Load())
	if err != nil {
		return err
	}

	ui.Header("plantscan upload")
	if f.dryRun {
		ui.Warning(fmt.Sprintf("Dry run: registering in %s, writing images to %s", cfg.SQLitePath, cfg.BlobDir))
	}

	ui.Step(1, 3, "Extracting metadata")
	batch, err := extract.Extract(ctx, root, subdir)
	if err != nil {
		return err
	}
	if batch.Len() == 0 {
		ui.Warning("No scans found")
		return nil
	}

	attribution := f.attribution()
	if attribution.UploadedBy == "" && batch.Records[0].UploadedBy == "" {
		attribution.UploadedBy = currentUser()
	}
	for i := range batch.Records {
		batch.Records[i] = fields.Merge(batch.Records[i], attribution)
	}
	ui.Success(fmt.Sprintf("%d scans under %s", batch.Len(), batch.Dir))

	ui.Step(2, 3, "Summary")
	if err := summary.Summarize(batch.Records).Write(cmd.OutOrStdout()); err != nil {
		return err
	}

	ui.Step(3, 3, fmt.Sprintf("Uploading to %s/%s", cfg.GCSBucketName, cfg.GCSPrefix))
	b, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	if err := b.openUploader(ctx, cfg, f.dryRun); err != nil {
		return err
	}

	total := batch.Len()
	paths := batch.LocalPaths()
	opts := pipeline.DefaultOptions()
	opts.Concurrency = cfg.ConcurrentJobs
	opts.Quality = quality
	opts.Bucket = cfg.GCSBucketName
	opts.Prefix = cfg.GCSPrefix
	opts.Sessions = b.sessions
	opts.UserID = attributionUser(batch.Records[0])
	opts.Dir = batch.Dir
	opts.BeforeItem = func(index int, record fields.Record) {
		ui.ItemStarted(index, total, batch.Paths[index])
	}
	opts.OnItemResult = func(index int, record fields.Record, registeredID string, err error) {
		if err != nil {
			ui.ItemFailed(index, total, batch.Paths[index], err)
			return
		}
		ui.ItemSucceeded(index, total, batch.Paths[index], registeredID)
	}

	result, err := pipeline.Run(ctx, paths, batch.Records, b.registrar, b.uploader, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	if result.SessionID != "" {
		ui.BlueText(fmt.Sprintf("Session %s", result.SessionID))
	}
	ui.Success(fmt.Sprintf("%d of %d scans uploaded in %s", result.Succeeded, result.Total, result.Duration.Round(time.Millisecond)))
	for _, err := range result.SecondaryErrors {
		ui.Warning(err.Error())
	}
	for _, item := range result.Items {
		if item.Err != nil {
			ui.Error(fmt.Sprintf("%s: %v", batch.Paths[item.Index], errors.Unwrap(item.Err)))
		}
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d scans failed", result.Failed, result.Total)
	}
	return nil
}

func attributionUser(record fields.Record) string {
	if record.UploadedBy != "" {
		return record.UploadedBy
	}
	return record.ScientistEmail
}
