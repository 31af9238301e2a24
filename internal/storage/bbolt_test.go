package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.pbecipher")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db, dbPath
}

func TestOpenAndInitialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.pbecipher")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}
}

func TestParams(t *testing.T) {
	db, _ := openTestDB(t)

	if _, err := db.GetParams(); err == nil {
		t.Error("Expected error before params are set")
	}

	params := Params{Salt: "abcdefgh", Algorithm: "PBEWithMD5AndDES", Iterations: 100000}
	if err := db.SetParams(params); err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}

	got, err := db.GetParams()
	if err != nil {
		t.Fatalf("Failed to get params: %v", err)
	}
	if got != params {
		t.Errorf("Params mismatch: got %+v, want %+v", got, params)
	}
}

func TestEntries(t *testing.T) {
	db, _ := openTestDB(t)

	if err := db.PutEntry("db.password", "c2VjcmV0"); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}
	if err := db.PutEntry("api.token", "dG9rZW4="); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}

	entry, err := db.GetEntry("db.password")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if entry.Value != "c2VjcmV0" {
		t.Errorf("Value mismatch: got %s", entry.Value)
	}
	created := entry.Created

	// Overwrite keeps the creation time
	time.Sleep(10 * time.Millisecond)
	if err := db.PutEntry("db.password", "bmV3"); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}
	entry, err = db.GetEntry("db.password")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if entry.Value != "bmV3" {
		t.Errorf("Value mismatch after overwrite: got %s", entry.Value)
	}
	if !entry.Created.Equal(created) {
		t.Errorf("Created changed on overwrite: %v -> %v", created, entry.Created)
	}
	if !entry.Modified.After(created) {
		t.Errorf("Modified should advance: %v", entry.Modified)
	}

	entries, err := db.ListEntries()
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "api.token" || entries[1].Name != "db.password" {
		t.Errorf("Entries not sorted: %s, %s", entries[0].Name, entries[1].Name)
	}

	existed, err := db.DeleteEntry("api.token")
	if err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if !existed {
		t.Error("DeleteEntry should report existing entry")
	}

	existed, err = db.DeleteEntry("api.token")
	if err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if existed {
		t.Error("DeleteEntry should report missing entry")
	}

	if _, err := db.GetEntry("api.token"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}

func TestCheckValue(t *testing.T) {
	db, _ := openTestDB(t)

	if _, err := db.GetCheck(); err == nil {
		t.Error("Expected error before check value is set")
	}

	if err := db.SetCheck("Y2hlY2s="); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}

	value, err := db.GetCheck()
	if err != nil {
		t.Fatalf("Failed to get check: %v", err)
	}
	if value != "Y2hlY2s=" {
		t.Errorf("Check mismatch: got %s", value)
	}
}

func TestStoreID(t *testing.T) {
	db, _ := openTestDB(t)

	if _, err := db.GetStoreID(); err == nil {
		t.Error("Expected error before store ID is created")
	}

	id, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to create store ID: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Expected 32 hex chars, got %q", id)
	}

	again, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to get store ID: %v", err)
	}
	if again != id {
		t.Errorf("Store ID changed: %s -> %s", id, again)
	}
}

func TestCompact(t *testing.T) {
	db, dbPath := openTestDB(t)

	if err := db.SetParams(Params{Salt: "abcdefgh", Algorithm: "PBEWithMD5AndDES", Iterations: 10}); err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if err := db.PutEntry(name, "dmFsdWU="); err != nil {
			t.Fatalf("Failed to put entry: %v", err)
		}
	}
	if _, err := db.DeleteEntry("b"); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	if _, err := os.Stat(dbPath + ".compact"); !os.IsNotExist(err) {
		t.Error("Temporary compact file should be removed")
	}

	entries, err := db.ListEntries()
	if err != nil {
		t.Fatalf("Failed to list entries after compact: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries after compact, got %d", len(entries))
	}
	if _, err := db.GetParams(); err != nil {
		t.Errorf("Params lost after compact: %v", err)
	}
}

func TestCompactFailureLeavesStoreClosable(t *testing.T) {
	db, dbPath := openTestDB(t)

	if err := db.PutEntry("a", "dmFsdWU="); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}

	// A non-empty directory in the backup slot makes the swap fail
	if err := os.MkdirAll(filepath.Join(dbPath+".backup", "blocker"), 0700); err != nil {
		t.Fatalf("Failed to create blocker: %v", err)
	}

	if err := db.Compact(); err == nil {
		t.Fatal("Compact should fail when the original cannot be moved aside")
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close after failed compact should succeed, got %v", err)
	}
	if _, err := os.Stat(dbPath + ".compact"); !os.IsNotExist(err) {
		t.Error("Temporary compact file should be removed")
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetEntry("a"); err != nil {
		t.Errorf("Entry lost after failed compact: %v", err)
	}
}

func TestCloseNilDatabase(t *testing.T) {
	var s Storage
	if err := s.Close(); err != nil {
		t.Errorf("Close on an unopened storage should be a no-op, got %v", err)
	}
}

func TestPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.pbecipher")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	if err := db.SetParams(Params{Salt: "abcdefgh", Algorithm: "PBEWithSHA1AndDESede", Iterations: 5}); err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if err := db.PutEntry("test", "ZGF0YQ=="); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	params, err := db2.GetParams()
	if err != nil {
		t.Fatalf("Failed to get params: %v", err)
	}
	if params.Algorithm != "PBEWithSHA1AndDESede" {
		t.Errorf("Algorithm not persisted: %s", params.Algorithm)
	}

	entry, err := db2.GetEntry("test")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if entry.Value != "ZGF0YQ==" {
		t.Error("Entry not persisted correctly")
	}
}

func TestRekey(t *testing.T) {
	db, _ := openTestDB(t)

	if err := db.SetParams(Params{Salt: "abcdefgh", Algorithm: "PBEWithMD5AndDES", Iterations: 10}); err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if err := db.SetCheck("old-check"); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}
	if err := db.PutEntry("db.password", "b2xk"); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}
	before, err := db.GetEntry("db.password")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}

	next := Params{Salt: "hgfedcba", Algorithm: "PBEWithSHA1AndDESede", Iterations: 20}
	if err := db.Rekey(next, "new-check", map[string]string{"db.password": "bmV3"}); err != nil {
		t.Fatalf("Rekey failed: %v", err)
	}

	got, err := db.GetParams()
	if err != nil {
		t.Fatalf("Failed to get params: %v", err)
	}
	if got != next {
		t.Errorf("Params mismatch: got %+v, want %+v", got, next)
	}
	if check, _ := db.GetCheck(); check != "new-check" {
		t.Errorf("Check value not replaced: %q", check)
	}
	after, err := db.GetEntry("db.password")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if after.Value != "bmV3" {
		t.Errorf("Value not replaced: %q", after.Value)
	}
	if !after.Created.Equal(before.Created) {
		t.Error("Rekey should preserve the creation time")
	}
}

func TestRekeyUnknownEntryRollsBack(t *testing.T) {
	db, _ := openTestDB(t)

	params := Params{Salt: "abcdefgh", Algorithm: "PBEWithMD5AndDES", Iterations: 10}
	if err := db.SetParams(params); err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if err := db.SetCheck("old-check"); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}

	err := db.Rekey(Params{Salt: "zzzzzzzz", Algorithm: "PBEWithMD5AndDES", Iterations: 1}, "new-check", map[string]string{"missing": "eA=="})
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Expected ErrEntryNotFound, got %v", err)
	}

	got, _ := db.GetParams()
	if got != params {
		t.Errorf("Params changed despite failed rekey: %+v", got)
	}
	if check, _ := db.GetCheck(); check != "old-check" {
		t.Errorf("Check changed despite failed rekey: %q", check)
	}
}
