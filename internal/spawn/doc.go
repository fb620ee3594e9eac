// Package spawn provides the subprocess transport for offload workers.
//
// It spawns the current executable as a worker process, hands it the write
// end of a dedicated pipe, and turns the bytes the worker sends back into a
// stream of frames. It also owns process lifecycle: reaping the child after
// the pipe closes and reporting abnormal exits.
package spawn
