package login

import (
	"errors"

	"github.com/nao1215/adslwatch/internal/model"
)

var (
	// ErrEmptyCaptcha is the attempt cause when the solver returned no text.
	ErrEmptyCaptcha = errors.New(model.ReasonEmptyCaptcha)

	// ErrNoSnapshot is the attempt cause when a post produced neither an
	// account page nor a CAPTCHA challenge.
	ErrNoSnapshot = errors.New("no account snapshot after post")

	// ErrCaptchaRejected is the attempt cause when the answered CAPTCHA did
	// not lead to an account page.
	ErrCaptchaRejected = errors.New("captcha answer rejected")

	// ErrNoLoginURL is returned by NewMachine without a portal URL.
	ErrNoLoginURL = errors.New("login URL is required")
)
