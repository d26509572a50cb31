package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	shiptest "github.com/imamik/shipyard/internal/testing"
)

func writeKey(t *testing.T, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte("key material"), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckDefault_AllGood(t *testing.T) {
	cfg := shiptest.NewConfigBuilder().WithKeyPath(writeKey(t, 0o600)).Build()

	results := CheckDefault(cfg)
	if results.HasErrors() {
		t.Fatalf("unexpected errors: %v", results.Error())
	}
	if len(results.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %v", results.Warnings())
	}
	if err := results.Error(); err != nil {
		t.Fatalf("Error() = %v, want nil", err)
	}
}

func TestCheckDefault_MissingKey(t *testing.T) {
	cfg := shiptest.NewConfigBuilder().
		WithKeyPath(filepath.Join(t.TempDir(), "absent.pem")).
		Build()

	results := CheckDefault(cfg)
	if !results.HasErrors() {
		t.Fatal("expected a required failure for the missing key")
	}
	if err := results.Error(); err == nil {
		t.Fatal("Error() = nil, want error")
	}
}

func TestCheckDefault_LooseKeyPermissionsWarnOnly(t *testing.T) {
	cfg := shiptest.NewConfigBuilder().WithKeyPath(writeKey(t, 0o644)).Build()

	results := CheckDefault(cfg)
	if results.HasErrors() {
		t.Fatalf("loose permissions must warn, not fail: %v", results.Error())
	}
	if len(results.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1", len(results.Warnings()))
	}
}

func TestCheck_ReportsEveryFailure(t *testing.T) {
	boom := errors.New("boom")
	reqs := []Requirement{
		{Name: "a", Required: true, Verify: func() error { return boom }},
		{Name: "b", Required: true, Verify: func() error { return nil }},
		{Name: "c", Required: true, Verify: func() error { return boom }},
	}

	results := Check(reqs)
	if len(results.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(results.Results))
	}
	if len(results.Failed) != 2 {
		t.Fatalf("got %d failures, want 2", len(results.Failed))
	}
}
