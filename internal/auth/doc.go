// Package auth implements the login, signup, and logout flows on top of the
// identity provider: form validation, provider error messages, and the
// short delayed redirect after each success.
package auth
