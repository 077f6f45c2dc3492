// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is defined and well formed
package version

import (
	"strings"
	"testing"
)

func TestIdentityDefined(t *testing.T) {
	for name, value := range map[string]string{
		"Version":      Version,
		"Product":      Product,
		"Manufacturer": Manufacturer,
	} {
		if value == "" {
			t.Errorf("%s should not be empty", name)
		}
		if len(value) > 100 {
			t.Errorf("%s is unreasonably long", name)
		}
	}
}

func TestVersionIsSemver(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Fatalf("expected major.minor.patch, got %q", Version)
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			t.Errorf("non-numeric version component %q in %q", p, Version)
		}
	}
}

func TestVersionNotPlaceholder(t *testing.T) {
	placeholders := []string{"TODO", "FIXME", "XXX", "placeholder"}

	for _, placeholder := range placeholders {
		if Version == placeholder || Product == placeholder || Manufacturer == placeholder {
			t.Errorf("identity uses placeholder value %s", placeholder)
		}
	}
}
