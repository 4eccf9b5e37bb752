package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/fs"
	"mediavault/internal/ingest"
	"mediavault/internal/model"
	"mediavault/internal/mv"
	"mediavault/internal/tracing"
	"mediavault/internal/vault"
)

// Version is reported to the tracing backend.
const Version = "0.1.0"

// Options adjust how an MVApp is wired for one CLI invocation.
type Options struct {
	// Operation names the CLI command being run (e.g. "CreateFolder").
	Operation string
	// Verbose lowers the log level to debug.
	Verbose bool
}

// MVApp is the application layer between the CLI and MVService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths and names, and releases resources on Close.
type MVApp struct {
	cfg      *config.Config
	catalog  *database.SQLiteCatalog
	sources  *fs.LocalSources
	service  *mv.MVService
	logger   *slog.Logger
	logFile  *os.File
	shutdown tracing.ShutdownFunc

	operation string
	started   time.Time
	user      *model.User
	failed    bool
}

// NewMVApp creates a fully wired MVApp from the given config.
// The caller must call Close when done.
func NewMVApp(ctx context.Context, cfg *config.Config, opts Options) (*MVApp, error) {
	policy, err := mv.ParseFolderDeletePolicy(cfg.Library.FolderDeletePolicy)
	if err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	opID := started.Format("20060102T150405Z")
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &MVApp{
		cfg:       cfg,
		logger:    logger,
		logFile:   logFile,
		sources:   fs.NewLocalSources(cfg.Ingest.Ignore),
		operation: opts.Operation,
		started:   started,
	}

	if err := a.wire(ctx, policy); err != nil {
		a.release(ctx)
		return nil, err
	}

	a.logger.Debug("operation started", "operation", a.operation)
	return a, nil
}

func (a *MVApp) wire(ctx context.Context, policy mv.FolderDeletePolicy) error {
	shutdown, err := tracing.Init(ctx, a.cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	a.shutdown = shutdown

	catalog, err := database.NewCatalogFromConfig(a.cfg.Catalog)
	if err != nil {
		return fmt.Errorf("creating catalog: %w", err)
	}
	a.catalog = catalog

	if err := catalog.CheckMigrations(); err != nil {
		return fmt.Errorf("catalog schema out of date (run 'mv catalog migrate'): %w", err)
	}

	blobs, err := vault.NewBlobStoreFromConfig(ctx, a.cfg.BlobStore)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	if err := blobs.ValidateSetup(); err != nil {
		return fmt.Errorf("validating blob store: %w", err)
	}

	logger := &slogAdapter{l: a.logger}
	clock := mv.RealClock{}
	pipeline, err := ingest.NewPipelineFromConfig(a.cfg.Ingest, blobs, logger, clock, mv.UUIDGenerator{})
	if err != nil {
		return fmt.Errorf("creating ingest pipeline: %w", err)
	}

	a.service = mv.NewMVService(catalog, blobs, pipeline, logger, clock, mv.Options{
		FolderDeletePolicy:  policy,
		SearchCaseSensitive: a.cfg.Library.SearchCaseSensitive,
	})
	return nil
}

// track records the outcome of an operation for the closing log line.
func (a *MVApp) track(err error) error {
	if err != nil {
		a.failed = true
	}
	return err
}

// requireUser returns the acting user's ID for operations that record or
// check ownership.
func (a *MVApp) requireUser() (int64, error) {
	if a.user == nil {
		return 0, fmt.Errorf("no acting user (pass --as or set %s): %w", EnvUser, mv.ErrPermissionDenied)
	}
	return a.user.ID, nil
}

// Folders

func (a *MVApp) CreateFolder(ctx context.Context, name string, parentID *int64) (*model.Folder, error) {
	uid, err := a.requireUser()
	if err != nil {
		return nil, err
	}
	folder, err := a.service.CreateFolder(ctx, name, parentID, uid)
	return folder, a.track(err)
}

func (a *MVApp) ListContents(ctx context.Context, folderID *int64) (*mv.FolderContents, error) {
	contents, err := a.service.ListContents(ctx, folderID)
	return contents, a.track(err)
}

// FolderPath returns the slash-joined breadcrumb of folderID, e.g. "/Media/Clips".
func (a *MVApp) FolderPath(ctx context.Context, folderID int64) (string, error) {
	entries, err := a.service.ResolvePath(ctx, folderID)
	if err != nil {
		return "", a.track(err)
	}
	if len(entries) == 0 {
		return "", a.track(fmt.Errorf("folder %d: %w", folderID, mv.ErrNotFound))
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return "/" + strings.Join(names, "/"), nil
}

func (a *MVApp) DeleteFolder(ctx context.Context, folderID int64) (*mv.FolderDeleteResult, error) {
	uid, err := a.requireUser()
	if err != nil {
		return nil, err
	}
	result, err := a.service.DeleteFolder(ctx, folderID, uid)
	return result, a.track(err)
}

// Files

// UploadFiles uploads rawPath into folderID. A directory uploads every file it
// contains (recursively when asked) and stops at the first failure, returning
// the files created so far. contentType applies to every file; when empty the
// type is derived from each file's extension.
func (a *MVApp) UploadFiles(ctx context.Context, rawPath string, folderID *int64, contentType string, recursive bool) ([]*model.File, error) {
	uid, err := a.requireUser()
	if err != nil {
		return nil, err
	}

	src, err := a.sources.Resolve(rawPath)
	if err != nil {
		return nil, a.track(fmt.Errorf("resolving path: %w", err))
	}

	sources := []*fs.Source{src}
	if src.IsDir {
		sources, err = a.sources.FindFiles(src, recursive)
		if err != nil {
			return nil, a.track(err)
		}
	}

	var created []*model.File
	for _, s := range sources {
		file, err := a.uploadOne(s, contentType, func(up *mv.Upload) (*model.File, error) {
			return a.service.CreateFile(ctx, up, folderID, uid)
		})
		if err != nil {
			return created, a.track(fmt.Errorf("uploading %s: %w", s.RelPath, err))
		}
		created = append(created, file)
	}
	return created, nil
}

// AddVersion uploads rawPath as the next version of fileID.
func (a *MVApp) AddVersion(ctx context.Context, fileID int64, rawPath, contentType string) (int64, error) {
	uid, err := a.requireUser()
	if err != nil {
		return 0, err
	}

	src, err := a.sources.Resolve(rawPath)
	if err != nil {
		return 0, a.track(fmt.Errorf("resolving path: %w", err))
	}

	var number int64
	_, err = a.uploadOne(src, contentType, func(up *mv.Upload) (*model.File, error) {
		n, err := a.service.AddVersion(ctx, fileID, up, uid)
		number = n
		return nil, err
	})
	return number, a.track(err)
}

func (a *MVApp) uploadOne(src *fs.Source, contentType string, send func(*mv.Upload) (*model.File, error)) (*model.File, error) {
	body, err := a.sources.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer body.Close()

	return send(&mv.Upload{
		Body:         body,
		OriginalName: src.Name(),
		ContentType:  contentType,
		Size:         src.Size,
	})
}

func (a *MVApp) RestoreVersion(ctx context.Context, fileID, versionNumber int64) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}
	return a.track(a.service.RestoreVersion(ctx, fileID, versionNumber))
}

func (a *MVApp) MoveFile(ctx context.Context, fileID int64, folderID *int64) error {
	uid, err := a.requireUser()
	if err != nil {
		return err
	}
	return a.track(a.service.MoveFile(ctx, fileID, folderID, uid))
}

func (a *MVApp) GetFile(ctx context.Context, fileID int64) (*model.File, error) {
	file, err := a.service.GetFile(ctx, fileID)
	return file, a.track(err)
}

func (a *MVApp) ListVersions(ctx context.Context, fileID int64) ([]*mv.VersionInfo, error) {
	versions, err := a.service.ListVersions(ctx, fileID)
	return versions, a.track(err)
}

// Download copies a version of fileID (0 for current) to w and returns what
// was copied.
func (a *MVApp) Download(ctx context.Context, fileID, versionNumber int64, w io.Writer) (*mv.Download, error) {
	dl, err := a.service.OpenFile(ctx, fileID, versionNumber)
	if err != nil {
		return nil, a.track(err)
	}
	defer dl.Body.Close()

	if _, err := io.Copy(w, dl.Body); err != nil {
		return nil, a.track(fmt.Errorf("copying %s: %w", dl.Version.Blob.StorageName, err))
	}
	return dl, nil
}

func (a *MVApp) Search(ctx context.Context, query string) ([]*model.File, error) {
	files, err := a.service.Search(ctx, query)
	return files, a.track(err)
}

func (a *MVApp) ListFiles(ctx context.Context, offset, limit int) ([]*model.File, error) {
	files, err := a.service.ListFiles(ctx, offset, limit)
	return files, a.track(err)
}

// Maintenance

func (a *MVApp) StorageStats(ctx context.Context) (*model.StorageStats, error) {
	stats, err := a.service.ComputeStorageStats(ctx)
	return stats, a.track(err)
}

func (a *MVApp) Reconcile(ctx context.Context, remove bool) (*mv.ReconcileReport, error) {
	report, err := a.service.Reconcile(ctx, remove)
	return report, a.track(err)
}

// Close logs the operation outcome and releases all resources.
func (a *MVApp) Close() error {
	status := "success"
	if a.failed {
		status = "error"
	}
	a.logger.Debug("operation finished",
		"operation", a.operation,
		"status", status,
		"duration", time.Since(a.started).Truncate(time.Millisecond),
	)
	return a.release(context.Background())
}

func (a *MVApp) release(ctx context.Context) error {
	var errs []error

	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing catalog: %w", err))
		}
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing traces: %w", err))
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}
