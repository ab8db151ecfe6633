// Package config provides configuration structures and utilities for adslwatch.
// It defines the portal and CAPTCHA endpoints, retry and concurrency limits,
// egress settings, report preferences, and the optional YAML portal file.
package config
