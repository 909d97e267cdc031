//go:build !((linux && cgo) || windows || darwin)

// SPDX-License-Identifier: EPL-2.0

package sink

import "fmt"

// NativeAvailable reports whether the oto and beep backends are compiled in.
// They need cgo on linux; use the clock backend instead.
const NativeAvailable = false

func openNative(backend string, _ *Sink) (device, error) {
	return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, backend)
}
