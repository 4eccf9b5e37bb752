package mv

// Options carries the library policies read from configuration.
type Options struct {
	FolderDeletePolicy  FolderDeletePolicy
	SearchCaseSensitive bool
}

// MVService is the orchestration layer over the catalog, the blob store and
// the ingestion pipeline. It implements the folder hierarchy and the file and
// version operations. Callers pass an already authenticated user ID as the
// requester; the service never re-validates credentials.
type MVService struct {
	catalog  Catalog
	blobs    BlobStore
	ingestor Ingestor
	logger   Logger
	clock    Clock
	opts     Options
}

// NewMVService creates a new MVService with the provided dependencies.
func NewMVService(catalog Catalog, blobs BlobStore, ingestor Ingestor, logger Logger, clock Clock, opts Options) *MVService {
	if opts.FolderDeletePolicy == "" {
		opts.FolderDeletePolicy = DeleteDetach
	}
	return &MVService{
		catalog:  catalog,
		blobs:    blobs,
		ingestor: ingestor,
		logger:   logger,
		clock:    clock,
		opts:     opts,
	}
}
