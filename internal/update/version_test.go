package update

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Version
		wantErr bool
	}{
		{
			name:  "simple version",
			input: "0.8.2",
			want:  &Version{Major: 0, Minor: 8, Patch: 2},
		},
		{
			name:  "version with v prefix",
			input: "v0.8.2",
			want:  &Version{Major: 0, Minor: 8, Patch: 2},
		},
		{
			name:  "version with prerelease",
			input: "1.0.0-rc.1",
			want:  &Version{Major: 1, Minor: 0, Patch: 0, Prerelease: "rc.1"},
		},
		{
			name:  "dated release tag",
			input: "release-2024_1_28",
			want:  &Version{Major: 2024, Minor: 1, Patch: 28},
		},
		{
			name:  "dated release tag with dots",
			input: "release_2023.12.01",
			want:  &Version{Major: 2023, Minor: 12, Patch: 1},
		},
		{
			name:    "invalid format",
			input:   "nightly",
			wantErr: true,
		},
		{
			name:    "missing patch",
			input:   "1.0",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVersion() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got.Major != tt.want.Major || got.Minor != tt.want.Minor ||
				got.Patch != tt.want.Patch || got.Prerelease != tt.want.Prerelease {
				t.Errorf("ParseVersion() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	v := &Version{Major: 2024, Minor: 1, Patch: 28, Prerelease: "hotfix"}
	if got := v.String(); got != "2024.1.28-hotfix" {
		t.Errorf("String() = %s, want 2024.1.28-hotfix", got)
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "1.2.3", "v1.2.3", 0},
		{"major greater", "2.0.0", "1.9.9", 1},
		{"minor less", "1.1.0", "1.2.0", -1},
		{"patch greater", "1.1.2", "1.1.1", 1},
		{"stable above prerelease", "1.0.0", "1.0.0-rc.1", 1},
		{"prerelease below stable", "1.0.0-rc.1", "1.0.0", -1},
		{"prerelease lexical", "1.0.0-rc.2", "1.0.0-rc.1", 1},
		{"dated tags", "release-2024_1_28", "release-2023_12_1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseVersion(tt.a)
			if err != nil {
				t.Fatalf("ParseVersion(%s) error = %v", tt.a, err)
			}
			b, err := ParseVersion(tt.b)
			if err != nil {
				t.Fatalf("ParseVersion(%s) error = %v", tt.b, err)
			}
			if got := a.Compare(b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNewerThanFirst(t *testing.T) {
	tests := []struct {
		name     string
		releases []Release
		wantTag  string
		wantHit  bool
	}{
		{
			name:     "ordered index",
			releases: []Release{{Tag: "release-2024_1_28"}, {Tag: "release-2023_12_1"}},
		},
		{
			name:     "unordered index",
			releases: []Release{{Tag: "v1.0.0"}, {Tag: "v0.9.0"}, {Tag: "v1.1.0"}},
			wantTag:  "v1.1.0",
			wantHit:  true,
		},
		{
			name:     "unparseable first tag",
			releases: []Release{{Tag: "nightly"}, {Tag: "v9.9.9"}},
		},
		{
			name:     "unparseable later tags skipped",
			releases: []Release{{Tag: "v1.0.0"}, {Tag: "nightly"}},
		},
		{
			name:     "single release",
			releases: []Release{{Tag: "v1.0.0"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, hit := newerThanFirst(tt.releases)
			if hit != tt.wantHit || tag != tt.wantTag {
				t.Errorf("newerThanFirst() = (%q, %v), want (%q, %v)", tag, hit, tt.wantTag, tt.wantHit)
			}
		})
	}
}
