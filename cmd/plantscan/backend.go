package main

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/rumor-ml/commons.systems/plantscan/internal/blob"
	"github.com/rumor-ml/commons.systems/plantscan/internal/config"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pipeline"
	"github.com/rumor-ml/commons.systems/plantscan/internal/store"
)

// backend holds the metadata store and blob storage for one command
type backend struct {
	registrar pipeline.Registrar
	sessions  pipeline.SessionStore
	uploader  pipeline.BlobUploader
	closers   []func() error
}

// openStore connects to the configured metadata store
func openStore(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	if cfg.Store == config.StoreSQLite {
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.registrar, b.sessions = db, db
		b.closers = append(b.closers, db.Close)
		return b, nil
	}

	client, err := store.NewFirestoreClient(ctx, cfg.GCPProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	fs := store.NewFirestore(client)
	b.registrar, b.sessions = fs, fs
	b.closers = append(b.closers, client.Close)
	return b, nil
}

// openUploader adds blob storage to b. Dry runs write images under cfg.BlobDir instead of GCS.
func (b *backend) openUploader(ctx context.Context, cfg config.Config, dryRun bool) error {
	if dryRun {
		b.uploader = blob.NewDirUploader(cfg.BlobDir)
		return nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	b.uploader = blob.NewGCSUploader(client)
	b.closers = append(b.closers, client.Close)
	return nil
}

// Close releases every client opened for the command
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
