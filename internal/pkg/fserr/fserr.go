// Package fserr centralizes the error-kind to syscall.Errno mapping
// a FUSE filesystem needs at its kernel boundary. Every component
// above the store returns one of the sentinel errors below; the
// Dispatcher is the only place that needs to know about bazil.org/fuse
// or syscall.Errno at all.
package fserr

import (
	"errors"
	"syscall"
)

// Kind identifies one of the error categories a filesystem mutation
// can fail with, independent of how the kernel boundary reports it.
type Kind int

const (
	// NotFound: a path component failed to resolve.
	NotFound Kind = iota
	// Exists: create/rename target collides with an existing file or
	// visible tag.
	Exists
	// NotEmpty: rmdir on a tag with matching files.
	NotEmpty
	// Invalid: illegal name, or a nonsensical rename.
	Invalid
	// IO: the store transaction aborted for a reason other than a
	// precondition failure.
	IO
	// NotSupported: hard links, xattrs beyond the minimal set.
	NotSupported
	// PermissionDenied: operation violates the fixed mount-wide policy.
	PermissionDenied
)

// Error wraps a Kind with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Errno maps err to the syscall.Errno the kernel callback surface
// expects. Errors that are not *Error (e.g. a raw driver error bubbling
// out of the store) are treated as IO errors.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return syscall.EIO
	}
	switch e.Kind {
	case NotFound:
		return syscall.ENOENT
	case Exists:
		return syscall.EEXIST
	case NotEmpty:
		return syscall.ENOTEMPTY
	case Invalid:
		return syscall.EINVAL
	case NotSupported:
		return syscall.ENOSYS
	case PermissionDenied:
		return syscall.EPERM
	default:
		return syscall.EIO
	}
}
