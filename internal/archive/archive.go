// Package archive reads contest archives and writes converted packages.
package archive

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

const (
	CompressionZstd = "zstd"
	CompressionNone = "none"
)

// DefaultDocumentPatterns matches legacy configuration documents.
var DefaultDocumentPatterns = []string{"**/*.yaml", "**/*.yml"}

// Extension returns the package file extension for a compression mode.
func Extension(compression string) string {
	if compression == CompressionNone {
		return ".tar"
	}
	return ".tar.zst"
}

// FindArchives lists the zip archives directly inside dir in lexical order.
func FindArchives(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no zip archive found in %s", dir)
	}
	sort.Strings(out)
	return out, nil
}

// ExtractZip unpacks the archive at src into dest. Entries that would land
// outside dest are rejected.
func ExtractZip(fs afero.Fs, src, dest string) error {
	f, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, info.Size())
	if errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("zip %s: an entry escapes the destination", src)
	}
	if err != nil {
		return fmt.Errorf("open zip %s: %w", src, err)
	}
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, zf := range zr.File {
		target, err := entryPath(dest, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(fs, zf, target); err != nil {
			return fmt.Errorf("extract %s: %w", zf.Name, err)
		}
	}
	return nil
}

func entryPath(dest, name string) (string, error) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(slashed)
	if path.IsAbs(slashed) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("zip entry %q escapes the destination", name)
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

func extractFile(fs afero.Fs, zf *zip.File, target string) error {
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Pack writes the tree under root to w as a tar stream, zstd-compressed
// unless compression is CompressionNone. Paths are relative to root and
// written in lexical order.
func Pack(fs afero.Fs, root string, w io.Writer, compression string) (err error) {
	var sink io.Writer = w
	if compression != CompressionNone {
		var enc *zstd.Encoder
		enc, err = zstd.NewWriter(w)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		sink = enc
	}
	tw := tar.NewWriter(sink)
	walkErr := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := fs.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		return fmt.Errorf("pack %s: %w", root, walkErr)
	}
	return tw.Close()
}

// FindDocuments returns the files under root matching any of the doublestar
// patterns, as sorted root-relative slash paths.
func FindDocuments(fs afero.Fs, root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultDocumentPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid document pattern %q", p)
		}
	}
	var out []string
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				out = append(out, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
