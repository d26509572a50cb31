// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max
// attempts, initial delay, and maximum delay. Errors wrapped with [Fatal]
// stop the loop immediately; [RetryIf] adapts an error predicate so only
// matching errors are retried. It is used for provider polling, host key
// scanning, and file transfers that may fail transiently.
package retry
