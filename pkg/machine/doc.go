/*
Package machine provides the simulated hardware that user processes run on.

The machine is deliberately small: a processor with a register file and a
flat physical memory array split into fixed-size pages, and a machine
wrapper that can be halted or aborted. It does not execute instructions;
whatever drives a user program (see package script) reads and writes
registers and raises exceptions through the kernel.

# Registers

Register numbering follows the MIPS conventions used by the user-level
syscall ABI:

  - RegV0 holds the syscall number on entry and the return value on exit
  - RegA0 to RegA3 hold up to four word-sized arguments
  - RegSP is the stack pointer
  - RegPC and RegNextPC hold the current and next program counter

# Address Translation

Each process installs a page table of TranslationEntry values on the
processor. The entries describe how virtual page numbers map to physical
page numbers and carry the valid, read-only, used and dirty bits.
*/
package machine
