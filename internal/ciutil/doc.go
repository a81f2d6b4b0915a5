// Package ciutil detects CI environments and resolves the environment
// variables shared by tests and tooling.
package ciutil
