// Package login runs the per-account login state machine against the portal.
//
// One Run performs up to MaxAttempts sequential attempts. Each attempt
// fetches the login page, stops early if the session is already
// authenticated, posts the discovered form with the credential, and answers
// at most one CAPTCHA round. Transient failures back off exponentially
// between attempts; a login page without identifiable username and password
// fields ends the run immediately.
package login
