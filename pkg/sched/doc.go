// Package sched provides a cooperative, single-processor thread scheduler.
//
// Threads are forked onto a FIFO run queue and executed one at a time by
// Run. Each thread body runs on its own goroutine so that Finish can
// terminate it from any call depth, but only one body ever executes at a
// time, matching a uniprocessor kernel.
//
// Thread lifecycle:
//
//	Ready -> Running -> Finished
package sched
