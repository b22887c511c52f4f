// Package registry maps driver names to the environment builders that turn a
// resolved run into requirement artifacts and virtual environments.
//
// A Registry is created once at process start, populated by each driver
// Module and then handed to the configuration builder and the application.
// Nothing in this package is process-global.
package registry
