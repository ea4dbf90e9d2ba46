package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLintParamsValidFile(t *testing.T) {
	lintFlags.file = "testdata/params-valid.yaml"
	lintFlags.dir = ""
	lintFlags.format = "text"

	if err := lintParams(nil, nil); err != nil {
		t.Errorf("lintParams() with valid file returned error: %v", err)
	}
}

func TestLintParamsInvalidFile(t *testing.T) {
	lintFlags.file = "testdata/params-invalid.yaml"
	lintFlags.dir = ""
	lintFlags.format = "text"

	if err := lintParams(nil, nil); err == nil {
		t.Error("lintParams() with invalid file should return error")
	}
}

func TestLintParamsNoFileOrDir(t *testing.T) {
	lintFlags.file = ""
	lintFlags.dir = ""
	lintFlags.format = "text"

	if err := lintParams(nil, nil); err == nil {
		t.Error("lintParams() without file or dir should return error")
	}
}

func TestLintParamsJSONFormat(t *testing.T) {
	lintFlags.file = "testdata/params-valid.yaml"
	lintFlags.dir = ""
	lintFlags.format = "json"

	if err := lintParams(nil, nil); err != nil {
		t.Errorf("lintParams() with JSON format returned error: %v", err)
	}
}

func TestLintParamsFile(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		wantValid bool
	}{
		{
			name:      "valid params",
			file:      "testdata/params-valid.yaml",
			wantValid: true,
		},
		{
			name:      "invalid params",
			file:      "testdata/params-invalid.yaml",
			wantValid: false,
		},
		{
			name:      "malformed yaml",
			file:      "testdata/params-malformed.yaml",
			wantValid: false,
		},
		{
			name:      "nonexistent file",
			file:      "testdata/nonexistent.yaml",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lintParamsFile(tt.file)
			if result.Valid != tt.wantValid {
				t.Errorf("lintParamsFile(%q).Valid = %v, want %v (error %q)",
					tt.file, result.Valid, tt.wantValid, result.Error)
			}
			if tt.wantValid && result.Digest == "" {
				t.Error("valid result is missing its digest")
			}
		})
	}
}

func TestLintParamsDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	data, err := os.ReadFile("testdata/params-valid.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "params.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	lintFlags.file = ""
	lintFlags.dir = tmpDir
	lintFlags.format = "text"

	if err := lintParams(nil, nil); err != nil {
		t.Errorf("lintParams() with valid directory returned error: %v", err)
	}
}

func TestLintParamsEmptyDirectory(t *testing.T) {
	lintFlags.file = ""
	lintFlags.dir = t.TempDir()
	lintFlags.format = "text"

	if err := lintParams(nil, nil); err == nil {
		t.Error("lintParams() with an empty directory should return error")
	}
}
