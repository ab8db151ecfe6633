// Package engine assembles the account-resolution engine from a config.Config.
//
// An Engine owns the session pool, the serialized CAPTCHA solver, the portal
// adapter, the login machine, the username resolver, and the bulk
// orchestrator. Commands build one Engine per process, call Start, and Close
// it on exit.
package engine
