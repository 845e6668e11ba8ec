// Package artifacts places generated audio in one of two storage tiers and
// retrieves it transparently. References are self-describing: an s3:// prefix
// means the object tier, anything else is a local filesystem path. The local
// tier is the default; the object tier activates only when bucket identity
// and credentials are present in the environment.
package artifacts
