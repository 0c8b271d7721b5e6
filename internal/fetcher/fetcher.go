// Package fetcher downloads seed rootfs tarballs into a local cache.
package fetcher

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/old-void-ppc/void-mklive/internal/utils/network"
	"github.com/schollz/progressbar/v3"
)

// NewClient builds the HTTP client used for downloads.
var NewClient = network.NewSecureHTTPClient

// IsRemote reports whether src is an http or https URL rather than a path.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DestPath returns where rawURL is stored below destDir.
func DestPath(rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("URL %s does not name a file", rawURL)
	}
	return filepath.Join(destDir, name), nil
}

// Fetch downloads urls into destDir using a pool of workers and returns the
// local paths in the order of urls. Files already present are reused. A
// single progress bar tracks files completed when showProgress is set.
func Fetch(urls []string, destDir string, workers int, showProgress bool) ([]string, error) {
	log := logger.Logger()
	if workers < 1 {
		workers = 1
	}

	paths := make([]string, len(urls))
	for i, u := range urls {
		p, err := DestPath(u, destDir)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(urls),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}

	client := NewClient()
	jobs := make(chan int, len(urls))
	errs := make([]error, len(urls))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if bar != nil {
					bar.Describe(fmt.Sprintf("downloading %s", filepath.Base(paths[i])))
				}
				if _, err := os.Stat(paths[i]); err == nil {
					log.Debugf("Using cached %s", paths[i])
				} else if err := download(client, urls[i], paths[i]); err != nil {
					log.Errorf("downloading %s failed: %v", urls[i], err)
					errs[i] = err
				}
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return paths, nil
}

// download writes to a temporary name first so an interrupted transfer is
// never mistaken for a cached file.
func download(client *http.Client, rawURL, dest string) error {
	logger.Logger().Infof("Downloading %s", rawURL)
	resp, err := client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: bad status: %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

