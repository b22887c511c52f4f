// Package config defines the format-agnostic configuration document the
// matrix engine is built from, along with the interfaces (Loader, Fetcher)
// that produce it from files and remote locations.
//
// A Table keeps its keys in document order. Order is meaningful: the axes
// of a matrix block are expanded in the order they were written, so every
// concrete loader must preserve it. Concrete implementations for TOML and
// HCL live in separate packages.
package config
