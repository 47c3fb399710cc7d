package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewGuard(t *testing.T) {
	tmpDir := t.TempDir()

	file := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{name: "valid existing directory", dir: tmpDir, wantErr: false},
		{name: "current directory", dir: ".", wantErr: false},
		{name: "empty directory", dir: "", wantErr: true},
		{name: "non-existent directory", dir: filepath.Join(tmpDir, "missing"), wantErr: true},
		{name: "regular file", dir: file, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, err := NewGuard(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && guard.WorkspaceDir() == "" {
				t.Error("NewGuard() created guard with empty root directory")
			}
		})
	}
}

func TestGuard_Resolve(t *testing.T) {
	tmpDir := t.TempDir()
	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}
	root := guard.WorkspaceDir()

	if err := os.Mkdir(filepath.Join(root, "subdir"), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "relative file", path: "a.txt", want: filepath.Join(root, "a.txt")},
		{name: "nested relative", path: "subdir/b.txt", want: filepath.Join(root, "subdir", "b.txt")},
		{name: "absolute inside", path: filepath.Join(root, "subdir"), want: filepath.Join(root, "subdir")},
		{name: "dot segments stay inside", path: "subdir/../c.txt", want: filepath.Join(root, "c.txt")},
		{name: "traversal", path: "../escape.txt", wantErr: true},
		{name: "absolute outside", path: "/etc/passwd", wantErr: true},
		{name: "empty", path: "", wantErr: true},
		{name: "blank", path: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Resolve(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestGuard_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	guard, err := NewGuard(root)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	link := filepath.Join(guard.WorkspaceDir(), "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := guard.Resolve("link/secret.txt"); err == nil {
		t.Error("Resolve() followed a symlink out of the workspace")
	}
}
