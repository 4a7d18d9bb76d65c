// Package provision turns an asset descriptor into a runnable server binary
// on disk: manifest check, download, extraction, executable lookup, and
// bundled-binary fallback.
package provision

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"visiond/internal/assets"
	"visiond/internal/common/fsutil"
)

// maxSearchDepth bounds the recursive walk for the extracted executable.
const maxSearchDepth = 4

var downloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "visiond",
	Subsystem: "provision",
	Name:      "downloads_total",
	Help:      "Completed runtime archive downloads",
})

func init() {
	prometheus.MustRegister(downloadsTotal)
}

// Provisioner ensures a llama-server binary is present on disk. Safe for
// concurrent use; provisioning runs at most once per process.
type Provisioner struct {
	resolver *assets.Resolver
	dir      string // runtime root; the manifest and per-tag dirs live here

	// EnvBinary is an operator-supplied pre-installed binary. When set it
	// skips provisioning entirely but must exist.
	EnvBinary string
	// BundledBinary is the fallback shipped with the application, used when
	// fresh provisioning fails.
	BundledBinary string

	client *http.Client
	log    zerolog.Logger
	goos   string

	mu     sync.Mutex
	cached string
}

// NewProvisioner constructs a Provisioner rooted at dir.
func NewProvisioner(resolver *assets.Resolver, dir string, log zerolog.Logger) *Provisioner {
	return &Provisioner{
		resolver: resolver,
		dir:      dir,
		client:   newDownloadClient(),
		log:      log,
		goos:     runtime.GOOS,
	}
}

func (p *Provisioner) manifestPath() string {
	return filepath.Join(p.dir, manifestName)
}

// EnsureBinary returns a usable server executable path. Resolution order:
// explicit environment-provided binary, valid persisted manifest, fresh
// provisioning, bundled fallback.
func (p *Provisioner) EnsureBinary(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	if p.EnvBinary != "" {
		if !fsutil.IsRegularFile(p.EnvBinary) {
			return "", runtimeNotFoundError{detail: "configured binary missing: " + p.EnvBinary}
		}
		p.cached = p.EnvBinary
		p.log.Info().Str("path", p.cached).Msg("using configured server binary")
		return p.cached, nil
	}

	desc, err := p.resolver.Resolve()
	if err != nil {
		return "", err
	}

	if m, err := loadManifest(p.manifestPath()); err == nil {
		if m.AssetName == desc.AssetName && fsutil.IsRegularFile(m.BinaryPath) {
			p.cached = m.BinaryPath
			p.log.Info().Str("path", p.cached).Str("tag", m.Tag).Msg("reusing provisioned server binary")
			return p.cached, nil
		}
	}

	path, perr := p.provisionFresh(ctx, desc)
	if perr != nil {
		p.log.Warn().Err(perr).Msg("provisioning failed, checking bundled binary")
		if p.BundledBinary != "" && fsutil.IsRegularFile(p.BundledBinary) {
			p.cached = p.BundledBinary
			p.log.Info().Str("path", p.cached).Msg("falling back to bundled server binary")
			return p.cached, nil
		}
		return "", runtimeNotFoundError{detail: perr.Error()}
	}
	p.cached = path
	return path, nil
}

// provisionFresh downloads and unpacks desc under the per-tag directory and
// persists the manifest.
func (p *Provisioner) provisionFresh(ctx context.Context, desc assets.Descriptor) (string, error) {
	tagDir := filepath.Join(p.dir, desc.Tag)
	if err := fsutil.EnsureDir(tagDir); err != nil {
		return "", err
	}

	archive := filepath.Join(tagDir, desc.AssetName)
	if err := p.download(ctx, desc.URL, archive); err != nil {
		return "", err
	}
	downloadsTotal.Inc()
	if err := extractArchive(archive, tagDir, desc.Format); err != nil {
		return "", err
	}

	binName := assets.BinaryName(p.goos)
	binPath, err := findBinary(tagDir, binName, maxSearchDepth)
	if err != nil {
		return "", err
	}

	// Accelerated backends may ship required shared libraries separately.
	// Missing libraries may already be on the host, so failure is only logged.
	if desc.Aux != nil {
		if err := p.fetchAux(ctx, desc.Aux, filepath.Dir(binPath)); err != nil {
			p.log.Warn().Err(err).Str("asset", desc.Aux.Name).Msg("auxiliary runtime download failed; continuing")
		}
	}

	if p.goos != "windows" {
		if err := os.Chmod(binPath, 0o755); err != nil {
			return "", err
		}
	}

	if err := saveManifest(p.manifestPath(), Manifest{
		Tag:        desc.Tag,
		AssetName:  desc.AssetName,
		BinaryPath: binPath,
	}); err != nil {
		return "", err
	}

	// Best effort; a leftover archive is harmless.
	_ = os.Remove(archive)

	p.log.Info().Str("path", binPath).Str("tag", desc.Tag).Msg("provisioned server binary")
	return binPath, nil
}

// fetchAux downloads and extracts the auxiliary runtime-library archive into
// the binary's own directory.
func (p *Provisioner) fetchAux(ctx context.Context, aux *assets.AuxAsset, destDir string) error {
	format, err := assets.FormatOf(aux.Name)
	if err != nil {
		return err
	}
	archive := filepath.Join(destDir, aux.Name)
	if err := p.download(ctx, aux.URL, archive); err != nil {
		return err
	}
	defer os.Remove(archive)
	return extractArchive(archive, destDir, format)
}

// Reset clears the in-process cache; used by tests.
func (p *Provisioner) Reset() {
	p.mu.Lock()
	p.cached = ""
	p.mu.Unlock()
}
