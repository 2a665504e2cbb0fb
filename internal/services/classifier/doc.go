// Package classifier wraps the remote gesture-classification endpoint.
//
// Each call posts one JPEG data URI and decodes {success, label, confidence,
// message}. A success=false answer ("no_hand", "no_data", ...) is returned as
// a Detection, while transport failures and non-2xx responses are errors
// tagged with services.ErrTransport so the capture loop can retry them.
package classifier
