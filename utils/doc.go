// SPDX-License-Identifier: EPL-2.0

// Package utils holds small sample-level helpers shared by the resamplers,
// the output backends and the WAV renderer.
package utils
