package database

import (
	"path"
	"sort"
	"testing"
)

func TestShippedVersionsAreSortedAndReadable(t *testing.T) {
	versions, err := shippedVersions()
	if err != nil {
		t.Fatalf("shipped versions: %v", err)
	}
	if len(versions) == 0 {
		t.Fatalf("expected at least one embedded migration")
	}
	if !sort.StringsAreSorted(versions) {
		t.Fatalf("migrations must apply in name order: %v", versions)
	}
	if versions[0] != "0001_init" {
		t.Fatalf("expected 0001_init first, got %q", versions[0])
	}

	// every shipped version must resolve back to an embedded file by its
	// slash path
	for _, v := range versions {
		content, err := migrationsFS.ReadFile(path.Join("migrations", v+".sql"))
		if err != nil {
			t.Fatalf("reading %s: %v", v, err)
		}
		if len(content) == 0 {
			t.Fatalf("migration %s is empty", v)
		}
	}
}
