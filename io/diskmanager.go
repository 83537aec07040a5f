// Package io provides block-addressed persistence for fixed-size
// pages. It knows nothing about what a page contains.
package io

import (
	stdio "io"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
)

// PageSize is the fixed size, in bytes, of every page this module
// reads or writes.
const PageSize = 4096

// PageID identifies a page on disk. Signed so InvalidPageID can be
// represented without a separate "ok" flag in hot paths.
type PageID = int32

const (
	// InvalidPageID marks the absence of a page.
	InvalidPageID PageID = -1
	// HeaderPageID is reserved for the index-name to root-page-id
	// directory.
	HeaderPageID PageID = 0
)

var (
	ErrInvalidPageID = fmt.Errorf("diskmanager: invalid page id")
	ErrShortWrite    = fmt.Errorf("diskmanager: page buffer is not exactly PageSize bytes")
)

// DiskManager is the external collaborator every other component is
// built against: page-addressed read/write plus page id allocation.
// DeallocatePage is a black box per the external interface contract —
// this module never reuses ids once freed.
type DiskManager interface {
	ReadPage(pageID PageID, dst []byte) error
	WritePage(pageID PageID, src []byte) error
	AllocatePage() PageID
	DeallocatePage(pageID PageID)
	Close() error
}

// FileDiskManager stores all pages in a single flat file, addressed by
// pageID * PageSize byte offsets.
type FileDiskManager struct {
	mu       sync.Mutex
	fs       afero.Fs
	file     afero.File
	nextPage int64 // atomic, next id AllocatePage will hand out
	log      *slog.Logger
}

var _ DiskManager = (*FileDiskManager)(nil)

// NewDiskManager opens (creating if absent) path on fs as the backing
// store. The allocator resumes from the file's current size so restarts
// never reissue a live page id, and never hands out HeaderPageID.
func NewDiskManager(fs afero.Fs, path string) (*FileDiskManager, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diskmanager: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("diskmanager: stat %s: %w", path, err)
	}
	next := info.Size() / PageSize
	if next <= int64(HeaderPageID) {
		next = int64(HeaderPageID) + 1
	}
	return &FileDiskManager{
		fs:       fs,
		file:     f,
		nextPage: next,
		log:      slog.Default().With("component", "diskmanager", "path", path),
	}, nil
}

// NewDefaultDiskManager opens path on the real OS filesystem.
func NewDefaultDiskManager(path string) (*FileDiskManager, error) {
	return NewDiskManager(afero.NewOsFs(), path)
}

func (d *FileDiskManager) ReadPage(pageID PageID, dst []byte) error {
	if pageID < 0 {
		return ErrInvalidPageID
	}
	if len(dst) != PageSize {
		return ErrShortWrite
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := int64(pageID) * PageSize
	n, err := d.file.ReadAt(dst, offset)
	if err != nil && err != stdio.EOF && err != stdio.ErrUnexpectedEOF {
		return fmt.Errorf("diskmanager: read page %d: %w", pageID, err)
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	d.log.Debug("read page", "page_id", pageID)
	return nil
}

func (d *FileDiskManager) WritePage(pageID PageID, src []byte) error {
	if pageID < 0 {
		return ErrInvalidPageID
	}
	if len(src) != PageSize {
		return ErrShortWrite
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := d.file.WriteAt(src, offset); err != nil {
		return fmt.Errorf("diskmanager: write page %d: %w", pageID, err)
	}
	d.log.Debug("write page", "page_id", pageID)
	return nil
}

func (d *FileDiskManager) AllocatePage() PageID {
	return PageID(atomic.AddInt64(&d.nextPage, 1) - 1)
}

// DeallocatePage is intentionally a no-op: page id reuse is explicitly
// left as a black box at this layer.
func (d *FileDiskManager) DeallocatePage(pageID PageID) {
	d.log.Debug("deallocate page", "page_id", pageID)
}

func (d *FileDiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}
