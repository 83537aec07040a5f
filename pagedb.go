// Package pagedb is the storage-and-index core of a pedagogical
// relational database engine: a bounded buffer pool over fixed-size
// disk pages (package memory), a disk-resident B+Tree index built on
// page fetch/unpin (package btree), the on-disk page layouts that
// back it (package storage), and the page-addressed persistence layer
// underneath (package io). A companion concurrent trie (package trie)
// is included as a smaller-scale illustration of the same latch
// discipline.
//
// This layer is a library: there is deliberately no CLI or
// configuration-file parsing anywhere in this module. Config is built
// directly in Go code by whatever consumes it; see cmd/demo for a
// minimal wiring example.
package pagedb

import (
	"fmt"

	"pagedb/btree"
	"pagedb/io"
	"pagedb/memory"
)

// Config holds everything needed to stand up one buffer pool and the
// B+Tree indexes built on it: pool size, LRU-K history depth, and the
// leaf/internal max sizes new indexes are created with.
type Config struct {
	PoolSize        int
	LRUK            int
	LeafMaxSize     int
	InternalMaxSize int
}

// DefaultConfig returns sane defaults for a small, pedagogical
// instance: a pool big enough to hold a few levels of a B+Tree
// resident at once, LRU-K history depth 2 (the reference replacer's
// own default), and max sizes small enough that the invariants in a
// test or demo actually get exercised by splits and merges.
func DefaultConfig() Config {
	return Config{
		PoolSize:        32,
		LRUK:            2,
		LeafMaxSize:     4,
		InternalMaxSize: 4,
	}
}

// Engine wires a disk manager, buffer pool manager, and a set of named
// B+Tree indexes together — the smallest unit that can actually open
// an index and serve Insert/GetValue/Remove against it.
type Engine struct {
	cfg  Config
	disk io.DiskManager
	bpm  *memory.BufferPoolManager
}

// Open constructs an Engine backed by disk, per cfg. It does not open
// any index by itself; call OpenIndex per named index.
func Open(cfg Config, disk io.DiskManager) *Engine {
	return &Engine{
		cfg:  cfg,
		disk: disk,
		bpm:  memory.NewBufferPoolManager(cfg.PoolSize, disk, cfg.LRUK),
	}
}

// BufferPool exposes the engine's buffer pool manager directly, for
// callers that need page-level access outside of a B+Tree (tests,
// tooling).
func (e *Engine) BufferPool() *memory.BufferPoolManager {
	return e.bpm
}

// OpenIndex opens (or creates, if absent) the named int64-keyed
// B+Tree index, using the engine's configured leaf/internal max
// sizes.
func (e *Engine) OpenIndex(name string) (*btree.Tree[int64], error) {
	t, err := btree.New[int64](name, e.bpm, e.cfg.LeafMaxSize, e.cfg.InternalMaxSize)
	if err != nil {
		return nil, fmt.Errorf("pagedb: open index %q: %w", name, err)
	}
	return t, nil
}

// Close flushes every resident page and closes the underlying disk
// manager.
func (e *Engine) Close() error {
	e.bpm.FlushAllPages()
	return e.disk.Close()
}
