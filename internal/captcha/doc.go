// Package captcha talks to the CAPTCHA inference service.
//
// The service exposes GET /health and POST /predict. Predict takes the
// challenge image as the multipart field "file" and answers with
// {"text": "..."}. The returned text is passed through as is.
package captcha
