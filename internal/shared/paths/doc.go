// Package paths resolves where tabkeeper keeps its data on disk.
package paths
