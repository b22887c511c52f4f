// Package app contains the core application logic. It loads the project
// configuration, expands it into runs and drives generation, listing and
// execution of those runs, decoupled from any specific entrypoint like a CLI.
package app
