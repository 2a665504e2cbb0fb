// Package identity is a small Identity Toolkit REST client: account
// creation, password sign-in, sign-out, and auth state notifications.
// Provider error codes are surfaced as *ProviderError for message mapping.
package identity
