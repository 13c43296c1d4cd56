// Package leakgate provides the command-line interface for leakgate. It
// wires flags and configuration files into the scanning pipeline and maps
// the policy verdict onto the process exit code.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/leakgate/leakgate/cmd/leakgate"
//	func main() { leakgate.Execute() }
package leakgate
