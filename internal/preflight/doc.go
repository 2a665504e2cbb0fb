// Package preflight provides readiness checks for the devices, binaries,
// directories, and remote endpoints signbridge depends on.
//
// The "signbridge doctor" command runs RunAll and renders the results. The
// sign2text and text2sign commands run the individual checks for the
// pieces they need before opening a session.
package preflight
