// Package retry holds the deferred second-chance work of a run.
//
// Workers push items that failed in the main pass with Enqueue, which never
// blocks. Once every worker is done the orchestrator calls Drain exactly
// once; each item gets one more try and is then dropped whether it
// succeeded or not.
package retry
