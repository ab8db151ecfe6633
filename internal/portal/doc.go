// Package portal contains every heuristic that depends on the subscriber
// portal's HTML.
//
// # Components
//
//   - ExtractForm: builds a POST-able field map from a login page and finds
//     the username and password fields
//   - ParseSnapshot: reads the account table of an authenticated page
//   - DetectCaptcha: recognizes a CAPTCHA challenge and its image
//   - HTMLAdapter: bundles the three behind the Adapter interface
//
// Orchestration code only talks to Adapter, so the layout heuristics can be
// replaced or stubbed without touching the retry logic.
//
// # Best effort
//
// The portal is a third-party service whose markup drifts. Field discovery
// uses substring matching with positional fallbacks, and snapshot parsing
// ignores rows it does not recognize. An unrecognized layout produces an
// empty snapshot or ErrLoginFieldsNotFound, never a panic.
package portal
