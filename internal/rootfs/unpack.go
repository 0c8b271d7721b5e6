// Package rootfs seeds a rootfs directory from a base-system tarball such as
// void-aarch64-ROOTFS-20240314.tar.xz.
package rootfs

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"

	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
)

// Compression is the outer encoding of a tarball.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionXz
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionXz:
		return "xz"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectCompression identifies the compression from the leading bytes.
func DetectCompression(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, magicXz):
		return CompressionXz
	case bytes.HasPrefix(header, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(header, magicGzip):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Options tune Unpack.
type Options struct {
	ShowProgress bool
}

// Unpack extracts tarball into dir, creating dir if needed. Entries that
// would land outside dir are rejected.
func Unpack(tarball, dir string, opts Options) error {
	log := logger.Logger()

	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	f, err := os.Open(tarball)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", tarball, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", tarball, err)
	}

	var src io.Reader = f
	if opts.ShowProgress {
		bar := progressbar.NewOptions64(fi.Size(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("unpacking "+filepath.Base(tarball)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		defer bar.Finish()
		src = io.TeeReader(f, bar)
	}

	br := bufio.NewReader(src)
	header, _ := br.Peek(6)
	compression := DetectCompression(header)
	log.Infof("Unpacking %s (%s) into %s", tarball, compression, dir)

	r, closer, err := decompressor(compression, br)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", tarball, err)
	}
	if closer != nil {
		defer closer()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return extract(tar.NewReader(r), dir)
}

func decompressor(c Compression, r io.Reader) (io.Reader, func(), error) {
	switch c {
	case CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, nil, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, func() { gr.Close() }, nil
	default:
		return r, nil, nil
	}
}

// safeJoin resolves name below root. Leading slashes and ".." components
// are clamped to root, the way tar -C treats them.
func safeJoin(root, name string) string {
	return filepath.Join(root, filepath.Clean("/"+name))
}

// checkWithin fails when the nearest existing ancestor of target resolves,
// through symlinks already extracted, to somewhere outside root.
func checkWithin(root, target string) error {
	p := filepath.Dir(target)
	for p != root {
		if _, err := os.Lstat(p); err == nil {
			break
		}
		p = filepath.Dir(p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return fmt.Errorf("tar entry %s escapes %s through a symlink", target, root)
	}
	return nil
}

func extract(tr *tar.Reader, dir string) error {
	root, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	type dirMode struct {
		path  string
		mode  os.FileMode
		mtime time.Time
	}
	var dirs []dirMode

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target := safeJoin(root, hdr.Name)
		if target == root {
			continue
		}
		if err := checkWithin(root, target); err != nil {
			return err
		}
		mode := hdr.FileInfo().Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			dirs = append(dirs, dirMode{target, mode, hdr.ModTime})
		case tar.TypeReg:
			if err := writeFile(tr, target, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			os.Remove(target)
			// Absolute link targets are interpreted inside the chroot.
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink %s: %w", target, err)
			}
		case tar.TypeLink:
			linkTarget := safeJoin(root, hdr.Linkname)
			if err := checkWithin(root, linkTarget); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Link(linkTarget, target); err != nil {
				return fmt.Errorf("failed to create hard link %s: %w", target, err)
			}
		default:
			// Device nodes are never needed: dev is bind-mounted from the host.
			logger.Logger().Debugf("Skipping tar entry %s of type %c", hdr.Name, hdr.Typeflag)
		}
	}

	// Directory permissions last, so read-only directories can be populated.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := os.Chmod(d.path, d.mode); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", d.path, err)
		}
		os.Chtimes(d.path, d.mtime, d.mtime)
	}
	return nil
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	os.Remove(target)
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}
	return os.Chmod(target, mode)
}
