// Package ioctl encodes Linux ioctl request codes and performs the three
// transfer shapes the embedded-controller driver understands: read one
// integer, write one integer, and a bare signal with no payload.
//
// See /usr/include/asm-generic/ioctl.h for the request code layout.
package ioctl

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	nrBits   = 8
	typeBits = 8
	sizeBits = 14
	dirBits  = 2

	nrShift   = 0
	typeShift = nrShift + nrBits
	sizeShift = typeShift + typeBits
	dirShift  = sizeShift + sizeBits

	dirNone  = 0
	dirWrite = 1
	dirRead  = 2
)

// PointerSize is the argument size the driver header encodes into its
// request codes. The kernel side declares the argument type as a pointer,
// so the size field carries the pointer width, not the pointee width.
const PointerSize = unsafe.Sizeof(uintptr(0))

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << dirShift) | (typ << typeShift) | (nr << nrShift) | (size << sizeShift)
}

// IO encodes a request with no payload. It corresponds to _IO in the Linux
// userland API.
func IO(typ, nr uintptr) uintptr {
	return ioc(dirNone, typ, nr, 0)
}

// IOR encodes a request whose payload is read by userland. It corresponds
// to _IOR in the Linux userland API.
func IOR(typ, nr, size uintptr) uintptr {
	return ioc(dirRead, typ, nr, size)
}

// IOW encodes a request whose payload is written by userland. It
// corresponds to _IOW in the Linux userland API.
func IOW(typ, nr, size uintptr) uintptr {
	return ioc(dirWrite, typ, nr, size)
}

// ReadInt issues op against fd and returns the integer the driver wrote
// into the supplied storage. Blocks until the driver completes the request.
func ReadInt(fd, op uintptr) (int32, error) {
	var value int32
	if err := ioctl(fd, op, uintptr(unsafe.Pointer(&value))); err != nil {
		return 0, err
	}

	return value, nil
}

// WriteInt issues op against fd with value as the command parameter.
// Blocks until the driver completes the request.
func WriteInt(fd, op uintptr, value int32) error {
	return ioctl(fd, op, uintptr(unsafe.Pointer(&value)))
}

// Signal issues op against fd with no payload in either direction.
func Signal(fd, op uintptr) error {
	return ioctl(fd, op, 0)
}

// ioctl executes a single ioctl system call. Any errno is returned
// verbatim; interpretation belongs to the caller.
func ioctl(fd, op, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, op, arg)
	if errno != 0 {
		return errno
	}

	return nil
}
