package classify_test

import (
	"path/filepath"
	"testing"
	"time"

	"sortd/internal/classify"
	"sortd/internal/config"
	"sortd/internal/rules"
)

func buildCatalog(t *testing.T, defs map[string]config.RuleConfig) *rules.Catalog {
	t.Helper()
	catalog, err := rules.Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return catalog
}

func TestPlaceDateBucketing(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"images": {Extensions: []string{".jpg"}, SubfolderByDate: true, DateFormat: "%Y/%m"},
	})

	task := classify.NewTask("/src/photo.jpg", time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
	placement := classify.Place(task, catalog)

	want := filepath.Join("Images", "2024", "03")
	if placement.RelDir != want {
		t.Fatalf("RelDir %q, want %q", placement.RelDir, want)
	}
}

func TestPlaceDateDefaultsToYear(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"video": {Extensions: []string{".mkv"}, SubfolderByDate: true},
	})

	task := classify.NewTask("/src/clip.mkv", time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC))
	if got := classify.Place(task, catalog).RelDir; got != filepath.Join("Video", "2023") {
		t.Fatalf("RelDir %q", got)
	}
}

func TestPlaceSubBucket(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"documents": {
			Extensions: []string{".pdf", ".txt"},
			Subfolders: map[string][]string{
				"PDFs":       {".pdf"},
				"Text Files": {},
			},
		},
	})

	task := classify.NewTask("/src/report.txt", time.Now())
	placement := classify.Place(task, catalog)
	if placement.RelDir != filepath.Join("Documents", "Text Files") {
		t.Fatalf("RelDir %q", placement.RelDir)
	}
}

func TestPlaceComposesDateBeforeSubBucket(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"documents": {
			Extensions:      []string{".pdf"},
			SubfolderByDate: true,
			DateFormat:      "%Y",
			Subfolders:      map[string][]string{"PDFs": {".pdf"}},
		},
	})

	task := classify.NewTask("/src/a.pdf", time.Date(2022, time.January, 2, 0, 0, 0, 0, time.UTC))
	want := filepath.Join("Documents", "2022", "PDFs")
	if got := classify.Place(task, catalog).RelDir; got != want {
		t.Fatalf("RelDir %q, want %q", got, want)
	}
}

func TestPlaceFallbackCategory(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"images": {Extensions: []string{".jpg"}},
	})

	task := classify.NewTask("/src/data.blob", time.Now())
	placement := classify.Place(task, catalog)
	if placement.Category != rules.FallbackCategory || placement.RelDir != rules.FallbackCategory {
		t.Fatalf("fallback placement %+v", placement)
	}
}

func TestPlaceMatchesCaseInsensitively(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"images": {Extensions: []string{".jpg"}},
	})

	task := classify.NewTask("/src/PHOTO.JPG", time.Now())
	if got := classify.Place(task, catalog).Category; got != "Images" {
		t.Fatalf("category %q", got)
	}
}

func TestDestinationJoinsRootAndFilename(t *testing.T) {
	catalog := buildCatalog(t, map[string]config.RuleConfig{
		"images": {Extensions: []string{".jpg"}},
	})

	task := classify.NewTask("/src/photo.jpg", time.Now())
	dest, placement := classify.Destination("/dst", task, catalog)
	if dest != filepath.Join("/dst", "Images", "photo.jpg") {
		t.Fatalf("destination %q", dest)
	}
	if placement.Category != "Images" {
		t.Fatalf("placement %+v", placement)
	}
}

func TestPlaceIsDeterministic(t *testing.T) {
	catalog := rules.Default()
	task := classify.NewTask("/src/photo.jpg", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	first := classify.Place(task, catalog)
	for i := 0; i < 5; i++ {
		if got := classify.Place(task, catalog); got != first {
			t.Fatalf("placement varied: %+v vs %+v", got, first)
		}
	}
}
