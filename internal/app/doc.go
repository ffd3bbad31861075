// Package app provides the application service layer.
//
// Orchestrates use cases: sign-in and token refresh, booking listing and
// conflict-checked writes, month occupancy, catalog administration.
// Sits between HTTP handlers and domain repositories. Depends on domain interfaces, not concrete implementations.
package app
