// Package status implements the single-line, auto-expiring status board that
// every pipeline reports into. Renderers subscribe as sinks.
package status
