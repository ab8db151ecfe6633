// Package model defines the core data structures shared by the account
// resolution engine.
//
// This package contains the following main types:
//   - Credential: The identity used to attempt a portal login
//   - AccountSnapshot: Account fields scraped from an authenticated page
//   - AttemptOutcome: The transient result of one login attempt
//   - BulkJobResult: The aggregated result of a bulk job
//
// Models live in their own package so that portal, login, resolver, bulk,
// database, and report can all use them without import cycles.
package model
