// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OpenArchive reads and splits the archive at path.
func OpenArchive(path string, c Codec, opts ...Option) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	a, err := Split(filepath.Base(path), data, c, opts...)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", path, err)
	}
	return a, nil
}

// UnpackDir writes every decoded block of a to dir as <base>_<index>.dat.
// Blocks that failed to decode are skipped. It returns the written paths.
func UnpackDir(a *Archive, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	base := ArchiveBase(a.Name)
	var written []string
	for _, b := range a.Blocks {
		if b.Err != nil {
			continue
		}
		path := filepath.Join(dir, BlockName(base, b.Index))
		if err := os.WriteFile(path, b.Data, 0644); err != nil {
			return written, fmt.Errorf("write block %d: %w", b.Index, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// PackDir joins the .dat files in dir into a new archive. Files are ordered
// by the number before their .dat extension and become blocks 0..N-1.
func PackDir(dir string, version Version, c Codec) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	type numbered struct {
		name  string
		index int
	}
	var files []numbered
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".dat") {
			continue
		}
		_, index, ok := ParseBlockName(e.Name())
		if !ok {
			return nil, fmt.Errorf("block file %s has no index", e.Name())
		}
		files = append(files, numbered{name: e.Name(), index: index})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].index < files[j].index
	})

	blocks := make([]Block, len(files))
	for i, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("read block file: %w", err)
		}
		blocks[i] = Block{Index: i, Data: data}
	}

	return Join(version, blocks, c)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "wwm_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	// Rename replaces path in one step; the existing file stays until then
	if err := os.Rename(tempPath, path); err != nil {
		if err := copyFile(tempPath, path); err != nil {
			os.Remove(tempPath)
			return fmt.Errorf("save %s: %w", path, err)
		}
		os.Remove(tempPath)
	}

	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
