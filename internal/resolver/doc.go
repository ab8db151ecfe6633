// Package resolver finds the portal login name of an ADSL line.
//
// Subscribers know their line number but the portal login is derived from
// it in a handful of historical ways: with or without the leading trunk
// zero, with a "1" or "01" region prefix, and so on. GenerateCandidates
// lists the plausible forms and Resolver races a login for each of them.
package resolver
