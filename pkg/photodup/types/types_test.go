package types

import "testing"

func TestIsImagePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/photos/a.jpg", true},
		{"/photos/a.JPG", true},
		{"/photos/a.jpeg", true},
		{"/photos/b.HEIC", true},
		{"/photos/raw/c.cr2", true},
		{"/photos/d.png", true},
		{"/docs/report.pdf", false},
		{"/photos/noext", false},
		{"/photos/.hidden", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsImagePath(tt.path); got != tt.want {
			t.Errorf("IsImagePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDuplicateSetWastedBytes(t *testing.T) {
	tests := []struct {
		name string
		set  DuplicateSet
		want int64
	}{
		{
			name: "three copies",
			set:  DuplicateSet{FileSize: 100, Files: []string{"a", "b", "c"}},
			want: 200,
		},
		{
			name: "pair",
			set:  DuplicateSet{FileSize: 4096, Files: []string{"a", "b"}},
			want: 4096,
		},
		{
			name: "single member wastes nothing",
			set:  DuplicateSet{FileSize: 100, Files: []string{"a"}},
			want: 0,
		},
		{
			name: "empty set",
			set:  DuplicateSet{FileSize: 100},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.WastedBytes(); got != tt.want {
				t.Errorf("WastedBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1024, "1.0 KiB"},
		{1536 * 1024, "1.5 MiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestImageExtensionsCopy(t *testing.T) {
	exts := ImageExtensions()
	if len(exts) == 0 {
		t.Fatal("expected non-empty extension list")
	}
	// Mutating the returned slice must not affect classification.
	exts[0] = ".exe"
	if IsImagePath("/x/a.jpg") != true {
		t.Error("allowlist mutated through returned copy")
	}
}
