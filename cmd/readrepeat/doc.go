// Package main hosts the readrepeat CLI entrypoint and command graph.
//
// The worker command runs the long-lived job loop. The remaining commands
// expose the same pipeline pieces (segmentation, alignment, transcription,
// speech synthesis, and the local queue) for one-off runs and debugging.
package main
