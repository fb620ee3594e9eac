// Package errors defines error types for the offload SDK.
package errors
