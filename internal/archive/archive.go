// Package archive implements the backup facility: it tars and gzips a
// directory tree into a timestamp-named archive. It is the trivial
// external collaborator spec.md §6 names at the Registry.Backup
// boundary.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Backup walks srcDir and writes every regular file under it into a
// gzipped tar placed in outputDir, named with a sortable timestamp plus
// a uuid suffix to avoid same-second collisions. It returns the
// archive's path.
func Backup(srcDir, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup output directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.tar.gz", time.Now().UTC().Format("20060102T150405Z"), uuid.New().String())
	outPath := filepath.Join(outputDir, name)

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})

	closeErr := tw.Close()
	gzErr := gz.Close()

	if walkErr != nil {
		return "", fmt.Errorf("failed to archive %s: %w", srcDir, walkErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to finalize tar writer: %w", closeErr)
	}
	if gzErr != nil {
		return "", fmt.Errorf("failed to finalize gzip writer: %w", gzErr)
	}

	return outPath, nil
}
