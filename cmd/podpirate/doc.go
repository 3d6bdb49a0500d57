// Command podpirate is the CLI and daemon entry point for the podcast ad
// removal pipeline. `podpirate serve` runs the daemon; every other command
// talks to a running daemon over its REST API.
package main
