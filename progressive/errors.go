// SPDX-License-Identifier: EPL-2.0

package progressive

import "errors"

var (
	ErrRangeNotSatisfiable = errors.New("progressive: range not satisfiable")
	ErrBadStatus           = errors.New("progressive: unexpected HTTP status")
	ErrUnknownLength       = errors.New("progressive: content length unknown")
	ErrNegativePosition    = errors.New("progressive: negative position")
	ErrClosed              = errors.New("progressive: closed")
)
