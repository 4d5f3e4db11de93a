// Package makehand exposes the documented targets of a Makefile as
// remotely invocable tools and runs them as managed child processes.
package makehand

// Version is the makehand release version.
const Version = "0.2.0"
