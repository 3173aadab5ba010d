// Package filesys defines the flat, name-addressed file system that user
// processes see through the create, open, read, write, close and unlink
// syscalls.
//
// The namespace has no directories: a file is identified by a single name.
// Two backends are provided:
//
//   - memfs keeps every file in memory and is used for tests and for
//     booting without a host directory
//   - stubfs maps each name to a file in one host directory
//
// Usage:
//
//	fs := memfs.New()
//	f, err := fs.Open("out.txt", true)
//	if err != nil {
//		return err
//	}
//	defer f.Close()
package filesys
