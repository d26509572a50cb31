// Package ec2 wraps the AWS EC2 API surface the instance controller needs:
// describe instance state, start, and stop. Everything else about the
// provider API stays outside this codebase.
//
// The API interface decouples the controller from the SDK; RealClient is
// the production implementation and MockAPI the test double.
package ec2
