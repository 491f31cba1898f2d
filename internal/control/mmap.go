package control

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFD maps BlockSize bytes of the file behind fd as read-write
// shared memory and returns the raw backing slice, for a caller that
// wants to hand it to vkreplay.Options.ControlBlockMemory directly
// rather than construct its own Block view over the same segment. The
// caller retains ownership of fd (it is not closed here) and is
// responsible for calling the returned closer once done with the
// segment.
func MmapFD(fd uintptr) (mem []byte, closer func() error, err error) {
	mem, err = unix.Mmap(int(fd), 0, BlockSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("control: mmap fd %d: %w", fd, err)
	}
	return mem, func() error { return unix.Munmap(mem) }, nil
}

// OpenFD maps BlockSize bytes of the file behind fd as a read-write
// shared control block segment and returns a Block over it. The caller
// retains ownership of fd (it is not closed here) and is responsible
// for calling the returned closer once the replay is done with the
// segment. Intended for a supervising parent process that only reads
// progress and never calls Replay itself; a replay driver should use
// MmapFD and pass the bytes through Options.ControlBlockMemory instead,
// since Replay constructs its own Block view internally.
func OpenFD(fd uintptr, processSlot int) (blk *Block, closer func() error, err error) {
	mem, closer, err := MmapFD(fd)
	if err != nil {
		return nil, nil, err
	}
	blk, err = New(mem, processSlot)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return blk, closer, nil
}

// OpenPath is OpenFD for callers that have a path rather than an
// already-open file descriptor (the common case for a standalone CLI
// invocation rather than one launched by a supervising parent that
// passes an fd directly).
func OpenPath(path string, processSlot int) (blk *Block, closer func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("control: open %s: %w", path, err)
	}
	defer f.Close()

	blk, unmap, err := OpenFD(f.Fd(), processSlot)
	if err != nil {
		return nil, nil, err
	}
	return blk, unmap, nil
}
