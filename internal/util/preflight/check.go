// Package preflight verifies local requirements before any remote
// contact is made, so misconfiguration fails fast on the operator's
// machine instead of mid-deployment.
package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/imamik/shipyard/internal/config"
)

// Requirement is one local condition a deployment depends on.
type Requirement struct {
	// Name identifies the requirement in diagnostics.
	Name string

	// Required indicates whether a failure aborts the deployment.
	// Non-required failures surface as warnings only.
	Required bool

	// Description explains what the requirement is for.
	Description string

	// Verify checks the condition.
	Verify func() error
}

// CheckResult contains the result of verifying a single requirement.
type CheckResult struct {
	Requirement Requirement
	Err         error
}

// CheckResults contains the results of verifying multiple requirements.
type CheckResults struct {
	Results []CheckResult
	Failed  []CheckResult
}

// HasErrors returns true if any required check failed.
func (r *CheckResults) HasErrors() bool {
	for _, res := range r.Failed {
		if res.Requirement.Required {
			return true
		}
	}
	return false
}

// Warnings returns the non-required failures.
func (r *CheckResults) Warnings() []CheckResult {
	var warnings []CheckResult
	for _, res := range r.Failed {
		if !res.Requirement.Required {
			warnings = append(warnings, res)
		}
	}
	return warnings
}

// Error returns an error naming every failed required check.
func (r *CheckResults) Error() error {
	var failed []string
	for _, res := range r.Failed {
		if res.Requirement.Required {
			failed = append(failed, fmt.Sprintf("%s: %v", res.Requirement.Name, res.Err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight checks failed: %s", strings.Join(failed, "; "))
}

// Check verifies the given requirements.
func Check(reqs []Requirement) *CheckResults {
	results := &CheckResults{}

	for _, req := range reqs {
		result := CheckResult{Requirement: req}
		if err := req.Verify(); err != nil {
			result.Err = err
			results.Failed = append(results.Failed, result)
		}
		results.Results = append(results.Results, result)
	}

	return results
}

// DefaultRequirements returns the local conditions every deployment
// needs: a readable private key with sane permissions.
func DefaultRequirements(cfg *config.Config) []Requirement {
	keyPath := cfg.Remote.KeyPath
	return []Requirement{
		{
			Name:        "private key",
			Required:    true,
			Description: "SSH private key used to authenticate against the instance",
			Verify: func() error {
				info, err := os.Stat(keyPath)
				if err != nil {
					return fmt.Errorf("cannot read %s: %w", keyPath, err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", keyPath)
				}
				return nil
			},
		},
		{
			Name:        "private key permissions",
			Required:    false,
			Description: "OpenSSH refuses keys readable by other users",
			Verify: func() error {
				info, err := os.Stat(keyPath)
				if err != nil {
					return nil // the required check reports this
				}
				if perm := info.Mode().Perm(); perm&0o077 != 0 {
					return fmt.Errorf("%s has mode %s, expected 0600", keyPath, fs.FileMode(perm))
				}
				return nil
			},
		},
	}
}

// CheckDefault verifies the default requirements for cfg.
func CheckDefault(cfg *config.Config) *CheckResults {
	return Check(DefaultRequirements(cfg))
}
