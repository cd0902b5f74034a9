// Package archive packs files and directory trees into gzip-compressed tarballs.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog"
)

// Service defines the interface for archive operations.
type Service interface {
	// Archive writes source to dest as a .tar.gz. A directory source is stored
	// with paths relative to the directory, a file source relative to its parent.
	Archive(ctx context.Context, source, dest string) error
}

// Impl implements the archive Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new archive service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Archive creates dest from source. A partially written dest is removed on failure.
func (s *Impl) Archive(ctx context.Context, source, dest string) (err error) {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("failed to stat archive source: %w", err)
	}

	start := time.Now()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	gz := pgzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	if info.IsDir() {
		err = addTree(ctx, tw, source)
	} else {
		err = addFile(tw, source, info.Name(), info)
	}
	if err != nil {
		_ = gz.Close()
		return err
	}

	if err := tw.Close(); err != nil {
		_ = gz.Close()
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	s.logger.Debug().
		Str("source", source).
		Str("archive", dest).
		Dur("duration", time.Since(start)).
		Msg("archive created")

	return nil
}

// addTree adds everything below root, skipping root itself.
func addTree(ctx context.Context, tw *tar.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		return addFile(tw, path, filepath.ToSlash(rel), info)
	})
}

func addFile(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		link = target
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", path, err)
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", path, err)
	}

	return nil
}
