// Package rasgo is the entry point of the SDK. It wires the web api client,
// usage tracking, evaluation, pruning and warehouse access from one config.
package rasgo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"rasgo-sdk/internal/client"
	"rasgo-sdk/internal/config"
	"rasgo-sdk/internal/database"
	"rasgo-sdk/internal/storage"
	"rasgo-sdk/internal/tracking"
	"rasgo-sdk/pkg/evaluate"
	"rasgo-sdk/pkg/prune"
	"rasgo-sdk/pkg/warehouse"

	"github.com/pkg/browser"
	"gorm.io/gorm"
)

type Rasgo struct {
	cfg       *config.Config
	client    *client.Client
	db        *gorm.DB
	tracker   tracking.Tracker
	evaluator *evaluate.Evaluator
	pruner    *prune.Pruner
	warehouse *warehouse.SQLWarehouse
}

type settings struct {
	publisher evaluate.Publisher
	out       io.Writer
	openURL   func(string) error
}

type Option func(*settings)

// WithPublisher replaces the web api client as the receiver of published
// payloads.
func WithPublisher(p evaluate.Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

func WithBrowser(open func(string) error) Option {
	return func(s *settings) { s.openURL = open }
}

// FromEnvironment loads the config from the environment, after loading
// envFile when one is given, and builds a client from it.
func FromEnvironment(envFile string, opts ...Option) (*Rasgo, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

func New(cfg *config.Config, opts ...Option) (*Rasgo, error) {
	c := client.New(cfg.APIURL, cfg.APIKey, cfg.Timeout)

	s := settings{publisher: c, out: os.Stdout, openURL: browser.OpenURL}
	for _, opt := range opts {
		opt(&s)
	}

	r := &Rasgo{cfg: cfg, client: c, tracker: tracking.NoopTracker{}}
	if cfg.TrackingDB != "" {
		db, err := database.NewDatabase(cfg.TrackingDB)
		if err != nil {
			return nil, fmt.Errorf("error opening tracking database: %w", err)
		}
		r.db = db
		r.tracker = tracking.NewDBTracker(db, "")
	}

	r.evaluator = evaluate.New(s.publisher, cfg.AppURL,
		evaluate.WithTracker(r.tracker),
		evaluate.WithOutput(s.out),
		evaluate.WithBrowser(s.openURL),
	)
	r.pruner = prune.New(r.evaluator)
	return r, nil
}

func (r *Rasgo) Config() *config.Config {
	return r.cfg
}

func (r *Rasgo) Evaluate() *evaluate.Evaluator {
	return r.evaluator
}

func (r *Rasgo) Prune() *prune.Pruner {
	return r.pruner
}

// WithExperiment tags every later call with the experiment id, which also
// becomes the id of every published dataset.
func (r *Rasgo) WithExperiment(id string) *Rasgo {
	r.evaluator.SetExperiment(id)
	return r
}

// History lists the recorded calls of an experiment, newest first. Without a
// tracking database it returns nothing.
func (r *Rasgo) History(ctx context.Context, experimentId string, limit int) ([]database.UsageEvent, error) {
	if r.db == nil {
		return nil, nil
	}
	return database.ListUsage(ctx, r.db, experimentId, limit)
}

func (r *Rasgo) credentials(ctx context.Context) (warehouse.Credentials, error) {
	wc := r.cfg.Warehouse
	creds := warehouse.Credentials{
		Dialect:    wc.Dialect,
		DSN:        wc.DSN,
		Username:   wc.Username,
		Password:   wc.Password,
		Account:    wc.Account,
		Database:   wc.Database,
		Schema:     wc.Schema,
		Warehouse:  wc.Warehouse,
		Role:       wc.Role,
		RolePrefix: wc.RolePrefix,
	}
	if creds.DSN != "" || creds.Username != "" {
		return creds, nil
	}

	profile, err := r.client.GetUserProfile(ctx)
	if err != nil {
		return creds, err
	}
	fromProfile := warehouse.CredentialsFromProfile(profile)
	for _, override := range []struct {
		dst *string
		val string
	}{
		{&fromProfile.Database, wc.Database},
		{&fromProfile.Schema, wc.Schema},
		{&fromProfile.Warehouse, wc.Warehouse},
		{&fromProfile.Role, wc.Role},
	} {
		if override.val != "" {
			*override.dst = override.val
		}
	}
	return fromProfile, nil
}

func (r *Rasgo) writer(ctx context.Context, dialect *warehouse.Dialect) (warehouse.Writer, error) {
	sc := r.cfg.Stage
	if sc.Bucket == "" {
		return &warehouse.InsertWriter{BatchSize: r.cfg.Warehouse.WriteBatchSize, MultiRow: dialect.MultiRowInsert}, nil
	}

	var stage storage.Stage
	var err error
	if sc.Dir != "" {
		stage, err = storage.NewLocalStage(sc.Dir, sc.Bucket)
	} else {
		stage, err = storage.NewS3Stage(ctx, storage.S3StageConfig{
			Bucket:          sc.Bucket,
			EndpointURL:     sc.S3EndpointURL,
			AccessKeyID:     sc.S3AccessKeyID,
			SecretAccessKey: sc.S3SecretAccessKey,
			Region:          sc.S3Region,
		})
	}
	if err != nil {
		return nil, err
	}

	return &warehouse.StageWriter{
		Stage:        stage,
		Prefix:       "rasgo",
		ChunkRows:    sc.ChunkRows,
		Workers:      sc.UploadWorkers,
		CopyTemplate: dialect.StageCopy,
		Credentials:  warehouse.StageCredentials{AccessKey: sc.S3AccessKeyID, SecretKey: sc.S3SecretAccessKey},
	}, nil
}

// Connect opens the warehouse. Credentials come from the RASGO_WAREHOUSE_*
// environment when a DSN or username is set, otherwise from the user profile
// of the web api. The connection is kept and reused until Close.
func (r *Rasgo) Connect(ctx context.Context) (*warehouse.SQLWarehouse, error) {
	if r.warehouse != nil {
		return r.warehouse, nil
	}

	creds, err := r.credentials(ctx)
	if err != nil {
		return nil, err
	}
	dialect, err := warehouse.GetDialect(creds.Dialect)
	if err != nil {
		return nil, err
	}
	writer, err := r.writer(ctx, dialect)
	if err != nil {
		return nil, err
	}

	w, err := warehouse.Connect(ctx, creds, warehouse.WithTracker(r.tracker), warehouse.WithWriter(writer))
	if err != nil {
		return nil, err
	}
	r.warehouse = w
	slog.Debug("warehouse connected", "dialect", dialect.Name)
	return w, nil
}

func (r *Rasgo) Close() error {
	var errs []error
	if r.warehouse != nil {
		if err := r.warehouse.Close(); err != nil {
			errs = append(errs, err)
		}
		r.warehouse = nil
	}
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.db = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("error closing rasgo client: %w", errors.Join(errs...))
	}
	return nil
}
