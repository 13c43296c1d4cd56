// Package detectors implements the secret detectors. A detector is pure: it
// reports candidate findings for one (path, text) pair and never touches the
// filesystem or the network.
package detectors
