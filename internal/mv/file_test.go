package mv_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mediavault/internal/mv"
	"mediavault/internal/testutil"
)

const mb = 1024 * 1024

func TestMVService_FileLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, alice := newService(t, mv.Options{})
	bob := testutil.CreateTestUser(t, svc.Catalog, "bob").ID

	media, err := svc.CreateFolder(ctx, "Media", nil, alice)
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	v1 := strings.Repeat("1", 2*mb)
	file, err := svc.CreateFile(ctx, testutil.NewUpload("clip.mp4", "video/mp4", v1), &media.ID, alice)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if file.CurrentVersion != 1 {
		t.Errorf("CurrentVersion = %d, want 1", file.CurrentVersion)
	}
	if file.Initial.Size != 2*mb {
		t.Errorf("Initial.Size = %d, want %d", file.Initial.Size, 2*mb)
	}

	svc.Clock.Advance(time.Minute)
	v2 := strings.Repeat("2", 3*mb)
	n, err := svc.AddVersion(ctx, file.ID, testutil.NewUpload("clip.mp4", "video/mp4", v2), alice)
	if err != nil {
		t.Fatalf("AddVersion() error = %v", err)
	}
	if n != 2 {
		t.Errorf("AddVersion() = %d, want 2", n)
	}

	got, err := svc.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFile() error = %v", err)
	}
	if got.CurrentVersion != 2 {
		t.Errorf("CurrentVersion = %d, want 2", got.CurrentVersion)
	}
	if got.Current.Size != 3*mb {
		t.Errorf("Current.Size = %d, want %d", got.Current.Size, 3*mb)
	}
	if got.Initial.Size != 2*mb {
		t.Errorf("Initial.Size = %d, want %d after a new version", got.Initial.Size, 2*mb)
	}

	if err := svc.MoveFile(ctx, file.ID, nil, bob); !errors.Is(err, mv.ErrPermissionDenied) {
		t.Errorf("MoveFile() by non-owner error = %v, want ErrPermissionDenied", err)
	}

	if err := svc.MoveFile(ctx, file.ID, nil, alice); err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}
	got, _ = svc.GetFile(ctx, file.ID)
	if got.FolderID != nil {
		t.Errorf("FolderID = %d, want root level", *got.FolderID)
	}
	if got.CurrentVersion != 2 {
		t.Errorf("CurrentVersion = %d after move, want 2", got.CurrentVersion)
	}

	if err := svc.RestoreVersion(ctx, file.ID, 1); err != nil {
		t.Fatalf("RestoreVersion() error = %v", err)
	}
	versions, err := svc.ListVersions(ctx, file.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(versions))
	}
	if versions[0].VersionNumber != 2 || versions[0].IsCurrent {
		t.Errorf("versions[0] = v%d current=%v, want v2 not current", versions[0].VersionNumber, versions[0].IsCurrent)
	}
	if versions[1].VersionNumber != 1 || !versions[1].IsCurrent {
		t.Errorf("versions[1] = v%d current=%v, want v1 current", versions[1].VersionNumber, versions[1].IsCurrent)
	}
}

func TestMVService_CreateFile(t *testing.T) {
	ctx := context.Background()

	t.Run("records uploader and checksum", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})

		file, err := svc.CreateFile(ctx, testutil.NewUpload("photo.png", "image/png", "pixels"), nil, alice)
		if err != nil {
			t.Fatalf("CreateFile() error = %v", err)
		}
		got, err := svc.GetFile(ctx, file.ID)
		if err != nil {
			t.Fatalf("GetFile() error = %v", err)
		}
		if got.UploaderName != "alice" {
			t.Errorf("UploaderName = %q, want alice", got.UploaderName)
		}
		if got.Current != got.Initial {
			t.Errorf("Current = %+v, want Initial %+v", got.Current, got.Initial)
		}
		if want := testutil.BLAKE3Hex([]byte("pixels")); got.Initial.Checksum != want {
			t.Errorf("Checksum = %q, want %q", got.Initial.Checksum, want)
		}
	})

	t.Run("sanitizes the original name", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})

		file, err := svc.CreateFile(ctx, testutil.NewUpload("../clip.mp4", "video/mp4", "x"), nil, alice)
		if err != nil {
			t.Fatalf("CreateFile() error = %v", err)
		}
		if file.OriginalName != "__clip.mp4" {
			t.Errorf("OriginalName = %q, want %q", file.OriginalName, "__clip.mp4")
		}
	})

	t.Run("unknown folder stores nothing", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})

		_, err := svc.CreateFile(ctx, testutil.NewUpload("clip.mp4", "video/mp4", "x"), ptr(42), alice)
		if !errors.Is(err, mv.ErrNotFound) {
			t.Fatalf("CreateFile() error = %v, want ErrNotFound", err)
		}
		if keys, _ := svc.Blobs.List(ctx); len(keys) != 0 {
			t.Errorf("stored blobs = %v, want none", keys)
		}
	})

	t.Run("unsupported media type", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})

		_, err := svc.CreateFile(ctx, testutil.NewUpload("notes.txt", "text/plain", "x"), nil, alice)
		if !errors.Is(err, mv.ErrUnsupportedMedia) {
			t.Errorf("CreateFile() error = %v, want ErrUnsupportedMedia", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})

		data := strings.Repeat("x", int(testutil.TestMaxUploadSize)+1)
		_, err := svc.CreateFile(ctx, testutil.NewUpload("big.mp4", "video/mp4", data), nil, alice)
		if !errors.Is(err, mv.ErrPayloadTooLarge) {
			t.Errorf("CreateFile() error = %v, want ErrPayloadTooLarge", err)
		}
	})

	t.Run("unknown uploader removes the blob", func(t *testing.T) {
		svc, _ := newService(t, mv.Options{})

		_, err := svc.CreateFile(ctx, testutil.NewUpload("clip.mp4", "video/mp4", "x"), nil, 999)
		if !errors.Is(err, mv.ErrNotFound) {
			t.Fatalf("CreateFile() error = %v, want ErrNotFound", err)
		}
		if keys, _ := svc.Blobs.List(ctx); len(keys) != 0 {
			t.Errorf("stored blobs = %v, want none", keys)
		}
	})

	t.Run("missing body", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})

		_, err := svc.CreateFile(ctx, &mv.Upload{OriginalName: "a.mp4"}, nil, alice)
		if !errors.Is(err, mv.ErrInvalidInput) {
			t.Errorf("CreateFile() error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestMVService_GetFile(t *testing.T) {
	svc, _ := newService(t, mv.Options{})

	_, err := svc.GetFile(context.Background(), 999)
	if !errors.Is(err, mv.ErrNotFound) {
		t.Errorf("GetFile() error = %v, want ErrNotFound", err)
	}
}

func TestMVService_ListFiles(t *testing.T) {
	ctx := context.Background()
	svc, alice := newService(t, mv.Options{})

	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		if _, err := svc.CreateFile(ctx, testutil.NewUpload(name, "video/mp4", name), nil, alice); err != nil {
			t.Fatal(err)
		}
		svc.Clock.Advance(time.Second)
	}

	tests := []struct {
		name   string
		offset int
		limit  int
		want   []string
	}{
		{"first page", 0, 2, []string{"c.mp4", "b.mp4"}},
		{"second page", 2, 2, []string{"a.mp4"}},
		{"past the end", 3, 2, nil},
		{"limit capped", 0, mv.MaxListLimit + 1, []string{"c.mp4", "b.mp4", "a.mp4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := svc.ListFiles(ctx, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("ListFiles() error = %v", err)
			}
			var names []string
			for _, f := range files {
				names = append(names, f.OriginalName)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ListFiles() = %v, want %v", names, tt.want)
			}
		})
	}

	t.Run("invalid paging", func(t *testing.T) {
		if _, err := svc.ListFiles(ctx, -1, 10); !errors.Is(err, mv.ErrInvalidInput) {
			t.Errorf("negative offset error = %v, want ErrInvalidInput", err)
		}
		if _, err := svc.ListFiles(ctx, 0, 0); !errors.Is(err, mv.ErrInvalidInput) {
			t.Errorf("zero limit error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestMVService_Search(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, opts mv.Options) *testutil.TestService {
		t.Helper()
		svc, alice := newService(t, opts)
		for _, name := range []string{"Holiday.mp4", "holiday-2.mp4", "work.mp4"} {
			if _, err := svc.CreateFile(ctx, testutil.NewUpload(name, "video/mp4", name), nil, alice); err != nil {
				t.Fatal(err)
			}
			svc.Clock.Advance(time.Second)
		}
		return svc
	}

	t.Run("case insensitive by default", func(t *testing.T) {
		svc := setup(t, mv.Options{})

		files, err := svc.Search(ctx, "HOLIDAY")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(files) != 2 || files[0].OriginalName != "holiday-2.mp4" {
			t.Errorf("Search() = %d files, want 2 newest first", len(files))
		}
	})

	t.Run("case sensitive when configured", func(t *testing.T) {
		svc := setup(t, mv.Options{SearchCaseSensitive: true})

		files, err := svc.Search(ctx, "Holiday")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(files) != 1 || files[0].OriginalName != "Holiday.mp4" {
			t.Errorf("Search() = %v, want [Holiday.mp4]", files)
		}
	})

	t.Run("folds non-ASCII case", func(t *testing.T) {
		svc, alice := newService(t, mv.Options{})
		for _, name := range []string{"Été à Paris.mp4", "STRASSE.mp4", "work.mp4"} {
			if _, err := svc.CreateFile(ctx, testutil.NewUpload(name, "video/mp4", name), nil, alice); err != nil {
				t.Fatal(err)
			}
		}

		tests := []struct {
			query string
			want  string
		}{
			{"été", "Été à Paris.mp4"},
			{"ÉTÉ À", "Été à Paris.mp4"},
			{"straße", "STRASSE.mp4"},
		}
		for _, tt := range tests {
			files, err := svc.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if len(files) != 1 || files[0].OriginalName != tt.want {
				t.Errorf("Search(%q) = %v, want [%s]", tt.query, files, tt.want)
			}
		}
	})

	t.Run("no match", func(t *testing.T) {
		svc := setup(t, mv.Options{})

		files, err := svc.Search(ctx, "birthday")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(files) != 0 {
			t.Errorf("Search() = %d files, want 0", len(files))
		}
	})

	t.Run("blank query", func(t *testing.T) {
		svc := setup(t, mv.Options{})

		if _, err := svc.Search(ctx, "   "); !errors.Is(err, mv.ErrInvalidInput) {
			t.Errorf("Search() error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestMVService_MoveFile(t *testing.T) {
	ctx := context.Background()
	svc, alice := newService(t, mv.Options{})

	a, _ := svc.CreateFolder(ctx, "A", nil, alice)
	b, _ := svc.CreateFolder(ctx, "B", nil, alice)
	file, err := svc.CreateFile(ctx, testutil.NewUpload("clip.mp4", "video/mp4", "x"), &a.ID, alice)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("moves between folders", func(t *testing.T) {
		if err := svc.MoveFile(ctx, file.ID, &b.ID, alice); err != nil {
			t.Fatalf("MoveFile() error = %v", err)
		}
		got, _ := svc.GetFile(ctx, file.ID)
		if got.FolderID == nil || *got.FolderID != b.ID {
			t.Errorf("FolderID = %v, want %d", got.FolderID, b.ID)
		}
	})

	t.Run("unknown target folder", func(t *testing.T) {
		if err := svc.MoveFile(ctx, file.ID, ptr(999), alice); !errors.Is(err, mv.ErrNotFound) {
			t.Errorf("MoveFile() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown file", func(t *testing.T) {
		if err := svc.MoveFile(ctx, 999, nil, alice); !errors.Is(err, mv.ErrNotFound) {
			t.Errorf("MoveFile() error = %v, want ErrNotFound", err)
		}
	})
}

func TestMVService_ComputeStorageStats(t *testing.T) {
	ctx := context.Background()
	svc, alice := newService(t, mv.Options{})

	stats, err := svc.ComputeStorageStats(ctx)
	if err != nil {
		t.Fatalf("ComputeStorageStats() error = %v", err)
	}
	if stats.TotalBytes != 0 {
		t.Errorf("TotalBytes = %d on empty library, want 0", stats.TotalBytes)
	}

	f, err := svc.CreateFile(ctx, testutil.NewUpload("a.mp4", "video/mp4", strings.Repeat("a", 100)), nil, alice)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateFile(ctx, testutil.NewUpload("b.mp4", "video/mp4", strings.Repeat("b", 50)), nil, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddVersion(ctx, f.ID, testutil.NewUpload("a.mp4", "video/mp4", strings.Repeat("c", 30)), alice); err != nil {
		t.Fatal(err)
	}
	// Restoring does not release the newer version's bytes.
	if err := svc.RestoreVersion(ctx, f.ID, 1); err != nil {
		t.Fatal(err)
	}

	stats, err = svc.ComputeStorageStats(ctx)
	if err != nil {
		t.Fatalf("ComputeStorageStats() error = %v", err)
	}
	if stats.TotalBytes != 180 {
		t.Errorf("TotalBytes = %d, want 180", stats.TotalBytes)
	}
	if stats.FileCount != 2 || stats.VersionCount != 1 {
		t.Errorf("counts = %d files, %d versions, want 2 and 1", stats.FileCount, stats.VersionCount)
	}
}
