package workspace

import (
	"path/filepath"
	"testing"
)

func TestGuard_Whitelist(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	extra := t.TempDir()
	target := filepath.Join(extra, "fixture.png")

	if _, err := guard.Resolve(target); err == nil {
		t.Fatal("expected path outside root to be rejected before whitelisting")
	}

	if err := guard.AddWhitelist(extra); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}
	if err := guard.AddWhitelist(extra); err != nil {
		t.Fatalf("AddWhitelist() duplicate error = %v", err)
	}
	if got := guard.GetWhitelist(); len(got) != 1 {
		t.Errorf("GetWhitelist() = %v, want one entry", got)
	}

	if _, err := guard.Resolve(target); err != nil {
		t.Errorf("Resolve() in whitelisted dir error = %v", err)
	}

	// Siblings that share a name prefix stay outside
	if _, err := guard.Resolve(extra + "-other/fixture.png"); err == nil {
		t.Error("expected sibling directory with shared prefix to be rejected")
	}
}

func TestGuard_AddWhitelistEmpty(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}
	if err := guard.AddWhitelist(""); err == nil {
		t.Error("AddWhitelist(\"\") should fail")
	}
}
