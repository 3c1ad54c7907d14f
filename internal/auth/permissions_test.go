package auth

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadPermissions_Success tests successfully loading permissions from YAML
func TestLoadPermissions_Success(t *testing.T) {
	permFile := filepath.Join(t.TempDir(), "permissions.yml")

	content := `roles:
  CAREGIVER:
    - medication:create
    - medication:view
    - calendar:update
  VIEWER:
    - medication:view
`
	if err := os.WriteFile(permFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test permissions file: %v", err)
	}

	perms, err := LoadPermissions(permFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(perms["CAREGIVER"]) != 3 {
		t.Errorf("Expected 3 permissions for CAREGIVER, got %d", len(perms["CAREGIVER"]))
	}
	if !contains(perms["CAREGIVER"], "calendar:update") {
		t.Error("Expected CAREGIVER to have 'calendar:update' permission")
	}
	if len(perms["VIEWER"]) != 1 {
		t.Errorf("Expected 1 permission for VIEWER, got %d", len(perms["VIEWER"]))
	}
}

// TestLoadPermissions_FileNotFound tests loading non-existent file
func TestLoadPermissions_FileNotFound(t *testing.T) {
	perms, err := LoadPermissions("/nonexistent/path/permissions.yml")

	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
	if perms != nil {
		t.Error("Expected nil permissions, got non-nil")
	}
}

// TestLoadPermissions_InvalidYAML tests loading invalid YAML
func TestLoadPermissions_InvalidYAML(t *testing.T) {
	permFile := filepath.Join(t.TempDir(), "bad_permissions.yml")

	content := `roles:
  CAREGIVER:
    - medication:create
    invalid yaml structure here
      - no proper indentation
`
	if err := os.WriteFile(permFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	perms, err := LoadPermissions(permFile)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
	if perms != nil {
		t.Error("Expected nil permissions for invalid YAML")
	}
}

// TestLoadPermissions_EmptyFile tests that a file without roles is rejected
func TestLoadPermissions_EmptyFile(t *testing.T) {
	permFile := filepath.Join(t.TempDir(), "empty_permissions.yml")
	if err := os.WriteFile(permFile, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadPermissions(permFile); err == nil {
		t.Error("Expected error for empty permissions file")
	}
}

// TestLoadPermissions_RealFile tests loading the actual permissions.yml
func TestLoadPermissions_RealFile(t *testing.T) {
	permFile := "../../permissions.yml"
	if _, err := os.Stat(permFile); os.IsNotExist(err) {
		t.Skip("Skipping test: permissions.yml not found")
	}

	perms, err := LoadPermissions(permFile)
	if err != nil {
		t.Fatalf("Expected to load real permissions.yml, got error: %v", err)
	}

	caregiver := perms["CAREGIVER"]
	for _, p := range []string{
		"care_profile:create", "care_profile:view", "care_profile:update",
		"medication:create", "medication:view", "medication:update", "medication:delete",
		"calendar:create", "calendar:view", "calendar:update", "calendar:delete",
		"health_record:create", "health_record:view", "health_record:delete",
	} {
		if !contains(caregiver, p) {
			t.Errorf("Expected CAREGIVER to have %s", p)
		}
	}

	for _, p := range perms["VIEWER"] {
		if len(p) < 5 || p[len(p)-5:] != ":view" {
			t.Errorf("Expected VIEWER to be read-only, found %s", p)
		}
	}
}

func TestHasPermission(t *testing.T) {
	perms := Permissions{
		"CAREGIVER": {"medication:create", "medication:view"},
		"VIEWER":    {"medication:view"},
	}

	tests := []struct {
		name  string
		roles []string
		perm  string
		want  bool
	}{
		{"caregiver can create", []string{"CAREGIVER"}, "medication:create", true},
		{"viewer cannot create", []string{"VIEWER"}, "medication:create", false},
		{"lowercase role matches", []string{"viewer"}, "medication:view", true},
		{"any role grants", []string{"VIEWER", "CAREGIVER"}, "medication:create", true},
		{"no roles", nil, "medication:view", false},
		{"unknown role", []string{"NURSE"}, "medication:view", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasPermission(&Principal{UserID: "u1", Roles: tt.roles}, tt.perm, perms)
			if got != tt.want {
				t.Errorf("HasPermission(%v, %s) = %v, want %v", tt.roles, tt.perm, got, tt.want)
			}
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
