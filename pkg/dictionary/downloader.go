package dictionary

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/japaniel/kanjilab/pkg/logging"
)

const (
	// JMdictURL is the EDRDG distribution of the English-only JMdict.
	JMdictURL = "http://ftp.edrdg.org/pub/Nihongo/JMdict_e.gz"

	defaultAPIBase = "https://api.github.com"
	userAgent      = "kanjilab-cli"
)

// Release names a GitHub repository and the asset to take from its latest
// release.
type Release struct {
	Owner string
	Repo  string
	Match func(name string) bool
}

var (
	// SimplifiedRelease publishes jmdict-simplified JSON archives.
	SimplifiedRelease = Release{
		Owner: "scriptin",
		Repo:  "jmdict-simplified",
		Match: func(name string) bool {
			return strings.Contains(name, "jmdict-eng-common") &&
				(strings.HasSuffix(name, ".json.tgz") || strings.HasSuffix(name, ".json.gz"))
		},
	}

	// FuriganaRelease publishes JmdictFurigana.
	FuriganaRelease = Release{
		Owner: "Doublevil",
		Repo:  "JmdictFurigana",
		Match: func(name string) bool { return name == "JmdictFurigana.json" },
	}
)

// Fetcher downloads source datasets.
type Fetcher struct {
	Client  *http.Client
	APIBase string
}

// NewFetcher returns a fetcher talking to api.github.com.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 10 * time.Minute},
		APIBase: defaultAPIBase,
	}
}

// EnsureDictionary checks if the dictionary exists at path.
// If not, it discovers the latest jmdict-simplified release, downloads it,
// and decompresses it.
func EnsureDictionary(ctx context.Context, path string) error {
	return NewFetcher().EnsureRelease(ctx, SimplifiedRelease, path)
}

// EnsureURL downloads url to path unless path already exists. The body is
// stored as served.
func (f *Fetcher) EnsureURL(ctx context.Context, url, path string) error {
	if exists, err := fileExists(path); err != nil || exists {
		return err
	}
	logging.FromContext(ctx).Info().Str("url", url).Str("path", path).Msg("downloading")

	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	return writeAtomic(path, body)
}

// EnsureRelease downloads the matching asset of the latest release to path
// unless path already exists. Tar archives are unpacked to their first
// JSON member and .gz assets are decompressed unless path itself ends in .gz.
func (f *Fetcher) EnsureRelease(ctx context.Context, rel Release, path string) error {
	if exists, err := fileExists(path); err != nil || exists {
		return err
	}
	log := logging.FromContext(ctx)
	log.Info().Str("path", path).Msgf("%s not found, looking up latest release", filepath.Base(path))

	name, downloadURL, err := f.latestReleaseAsset(ctx, rel)
	if err != nil {
		return fmt.Errorf("failed to find latest %s release: %w", rel.Repo, err)
	}

	log.Info().Str("url", downloadURL).Msg("downloading")
	body, err := f.get(ctx, downloadURL)
	if err != nil {
		return err
	}
	defer body.Close()

	switch {
	case strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".tar.gz"):
		return extractJSON(body, path)
	case strings.HasSuffix(name, ".gz") && !strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer zr.Close()
		return writeAtomic(path, zr)
	default:
		return writeAtomic(path, body)
	}
}

func (f *Fetcher) latestReleaseAsset(ctx context.Context, rel Release) (name, url string, err error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", f.APIBase, rel.Owner, rel.Repo)
	body, err := f.get(ctx, apiURL)
	if err != nil {
		return "", "", err
	}
	defer body.Close()

	var release struct {
		TagName string `json:"tag_name"`
		Assets  []struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(body).Decode(&release); err != nil {
		return "", "", err
	}

	for _, asset := range release.Assets {
		if rel.Match(asset.Name) {
			return asset.Name, asset.BrowserDownloadURL, nil
		}
	}
	return "", "", fmt.Errorf("no suitable asset found in release %s", release.TagName)
}

func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Add User-Agent as required by GitHub API
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

func extractJSON(r io.Reader, destPath string) error {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("no json file found in downloaded archive")
		}
		if err != nil {
			return fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(header.Name, ".json") {
			return writeAtomic(destPath, tarReader)
		}
	}
}

// writeAtomic writes r to a temporary file next to path and renames it into
// place once complete.
func writeAtomic(path string, r io.Reader) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
