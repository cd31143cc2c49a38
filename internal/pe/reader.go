// Package pe locates and patches fixed-width constants inside PE images.
package pe

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Reader is a memory-mapped view of a file on disk.
type Reader struct {
	file     *os.File
	data     mmap.MMap
	filepath string
	filesize int64
	writable bool
}

// Open maps the whole file. A writable mapping is shared, so changes made
// through Bytes reach the file on Flush or Close.
func Open(filepath string, writable bool) (*Reader, error) {
	flag, prot := os.O_RDONLY, mmap.RDONLY
	if writable {
		flag, prot = os.O_RDWR, mmap.RDWR
	}

	f, err := os.OpenFile(filepath, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("获取文件信息失败: %w", err)
	}
	if !stat.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("不是普通文件: %s", filepath)
	}

	r := &Reader{
		file:     f,
		filepath: filepath,
		filesize: stat.Size(),
		writable: writable,
	}

	// Empty files cannot be mapped.
	if r.filesize == 0 {
		return r, nil
	}

	r.data, err = mmap.Map(f, prot, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("映射文件失败: %w", err)
	}
	adviseSequential(r.data)

	return r, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (r *Reader) Bytes() []byte {
	return r.data
}

// FilePath returns the file path.
func (r *Reader) FilePath() string {
	return r.filepath
}

// FileSize returns the file size in bytes.
func (r *Reader) FileSize() int64 {
	return r.filesize
}

// Writable reports whether the mapping was opened read-write.
func (r *Reader) Writable() bool {
	return r.writable
}

// Flush writes modified pages back to the file.
func (r *Reader) Flush() error {
	if !r.writable || r.data == nil {
		return nil
	}
	if err := r.data.Flush(); err != nil {
		return fmt.Errorf("同步文件失败: %w", err)
	}
	return nil
}

// Close flushes a writable mapping, unmaps it and closes the file.
// Calling Close more than once is a no-op.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}

	var firstErr error
	if r.data != nil {
		if err := r.Flush(); err != nil {
			firstErr = err
		}
		if err := r.data.Unmap(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("解除映射失败: %w", err)
		}
		r.data = nil
	}

	if err := r.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("关闭文件失败: %w", err)
	}
	r.file = nil

	return firstErr
}
