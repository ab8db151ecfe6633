// Package main provides the entry point for the adslwatch CLI.
//
// adslwatch registers ADSL subscriber lines with their self-service portal,
// solving the login CAPTCHA through an inference service, and keeps a
// history of each account's plan, status and balance.
//
// Usage:
//
//	adslwatch register 0871234 0871235 --network tehran-1
//	adslwatch register --list lines.txt
//	adslwatch refresh --all
//
// See --help for all available options.
package main

func main() {
	Execute()
}
