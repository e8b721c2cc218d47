// Package ioutils provides file system and asset verification utilities.
//
// This package contains functions for:
//   - Whole-file atomic writes (temp file + rename)
//   - Existence checks used for idempotent resume
//   - Directory creation
//   - Image sanity checks for downloaded assets
//
// # File Operations
//
//	// Write an asset without ever leaving a truncated file behind
//	err := ioutils.WriteFileAtomic("/out/Chapter 1/001.jpg", data)
//
//	// Skip assets already on disk
//	if ioutils.Exists(path) {
//	    return nil
//	}
//
// # Image Verification
//
// Sites under bot protection sometimes answer an image request with an
// HTML challenge page and a 200 status. VerifyImage rejects such bodies:
//
//	if err := ioutils.VerifyImage(body); err != nil {
//	    // retry the asset instead of saving the page
//	}
package ioutils
