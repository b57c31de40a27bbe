// Package cli holds helpers shared by the kurp commands: exit codes for
// configuration and runtime failures, shutdown signal handling, and the
// YAML and JSON printers used by "kurp config show".
//
//	sig, stop := cli.WaitForShutdown()
//	defer stop()
//	<-sig
package cli
