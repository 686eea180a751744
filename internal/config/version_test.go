package config

import (
	"errors"
	"testing"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version    int
		wantReason string
	}{
		{version: 0},
		{version: CurrentVersion},
		{version: -1, wantReason: "invalid"},
		{version: CurrentVersion + 1, wantReason: "newer than this build"},
	}
	for _, tt := range tests {
		err := ValidateVersion(tt.version)
		if tt.wantReason == "" {
			if err != nil {
				t.Fatalf("ValidateVersion(%d) = %v", tt.version, err)
			}
			continue
		}
		var ve *VersionError
		if !errors.As(err, &ve) {
			t.Fatalf("expected *VersionError for %d, got %T", tt.version, err)
		}
		if ve.Reason != tt.wantReason {
			t.Fatalf("reason = %q, want %q", ve.Reason, tt.wantReason)
		}
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := writeConfig(t, "config.yaml", "version: 99\n")
	_, err := Load(path)
	var ve *VersionError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *VersionError, got %v", err)
	}
}
