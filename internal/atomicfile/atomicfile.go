// Package atomicfile writes output files through temporary siblings so a
// failed run never leaves a half written file behind.
package atomicfile

import (
	"fmt"
	"io"
	"os"
)

const tmpSuffix = ".tmp"

// Write writes path through path+".tmp" and renames it into place.
func Write(path string, write func(io.Writer) error) error {
	tmp, err := stage(path, write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func stage(path string, write func(io.Writer) error) (string, error) {
	tmp := path + tmpSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return tmp, nil
}

// Batch stages several files and moves them into place together. Either
// every file of the batch ends up at its path or none does.
type Batch struct {
	staged []string
}

// Add writes path to its temporary sibling. The file is not visible until Commit.
func (b *Batch) Add(path string, write func(io.Writer) error) error {
	if _, err := stage(path, write); err != nil {
		return err
	}
	b.staged = append(b.staged, path)
	return nil
}

// Commit renames every staged file into place. When a rename fails the files
// already moved are removed and the remaining temporaries are discarded.
func (b *Batch) Commit() error {
	for i, path := range b.staged {
		if err := os.Rename(path+tmpSuffix, path); err != nil {
			for _, done := range b.staged[:i] {
				os.Remove(done)
			}
			b.staged = b.staged[i:]
			b.Abort()
			return fmt.Errorf("rename %s: %w", path, err)
		}
	}
	b.staged = nil
	return nil
}

// Abort discards every staged file.
func (b *Batch) Abort() {
	for _, path := range b.staged {
		os.Remove(path + tmpSuffix)
	}
	b.staged = nil
}
