package loadtest

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Podium Load Tool
================

Fires concurrent uploads above the submission limit, evaluates the accepted
ones and verifies the ranking served by /rankings.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -participants int
        Number of simulated participants (default 50)
  -tasks int
        Tasks each participant submits to (default 4)
  -attempts int
        Upload attempts per participant and task (default 5)
  -limit int
        Submission limit the server enforces (default 3)
  -workers int
        Concurrent requests in flight (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -token string
        Bearer token for upload and evaluate
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  go run ./cmd/loadtest -participants 200 -attempts 8
  go run ./cmd/loadtest -url http://localhost:8080 -token s3cret
`)
}
