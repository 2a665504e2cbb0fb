// Package services defines shared utilities consumed by the pipelines and
// their remote clients.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, pipeline names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so transport, capability,
//     and validation failures can be told apart when rendering status text.
//   - HTTPStatusError, the common shape for non-2xx responses from the
//     classification, conversion, and identity endpoints.
package services
