// Package startup handles process bootstrap: configuration resolution from
// environment variables (with a .env file honored first), directory and
// external tool probing, and the structured startup/shutdown log sections.
//
// Configuration is read exactly once into an immutable Config that the rest
// of the application receives by reference.
package startup
