//go:build windows

package bytesource

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Open maps the file at path into memory read-only and returns its contents.
func Open(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}
	if size > int64(^uint32(0)) {
		return nil, nil, fmt.Errorf("bytesource: file too large to map (%d bytes)", size)
	}

	mapping, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, nil, err
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	cleanup := func() error {
		if err := windows.UnmapViewOfFile(addr); err != nil {
			return err
		}
		return windows.CloseHandle(mapping)
	}
	return data, cleanup, nil
}
