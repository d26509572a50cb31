// Package testing provides test utilities and builders for unit tests.
//
// This package centralizes common testing patterns to avoid duplication
// across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithInstance("i-0123456789abcdef0", "eu-central-1").
//	    WithRetrieve("logs", "params").
//	    Build()
package testing
