// Package userprog implements user processes on the simulated machine.
//
// A Process owns a page table mapping its virtual pages onto the machine's
// physical memory, a descriptor table of open files, and the metadata of
// the executable image it loaded. User code reaches the kernel only
// through HandleException, which decodes a syscall from the processor
// registers, runs the matching handler and writes the result back.
//
// Every address and length arriving from user code is untrusted. Virtual
// memory transfers clamp to what the page table can reach and report the
// number of bytes moved rather than failing, and descriptor operations
// validate their slot before touching memory or files.
//
// Kernel services (machine, file system, console, scheduler) are injected
// through a Kernel value rather than reached through globals.
package userprog
