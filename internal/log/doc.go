// Package log provides slog loggers that mask portal secrets.
//
// SecureHandler masks attributes whose key names a secret (password,
// secret, cookie, capres, session identifiers) and string values that look
// like cookies or credential form bodies. It wraps any slog.Handler.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("login", "login", "10871234", "secret", cred.Secret) // secret is masked
package log
