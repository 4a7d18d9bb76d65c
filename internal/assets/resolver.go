package assets

import (
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Resolver picks the release asset for the current host. The GPU probe result
// and the variant log line are cached for the process lifetime.
type Resolver struct {
	// OverrideURL, when set, bypasses platform resolution entirely.
	OverrideURL string
	// Tag overrides DefaultTag.
	Tag string
	// DisableGPU forces the universal (non-CUDA) Windows build.
	DisableGPU bool

	Log zerolog.Logger

	// goos/goarch default to the build platform; tests override them.
	goos   string
	goarch string

	// probe defaults to the nvidia-smi check; tests override it.
	probe     func() bool
	probeOnce sync.Once
	hasNvidia bool

	logOnce sync.Once
}

// NewResolver constructs a Resolver for the build platform.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		Log:    log,
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		probe:  detectNvidiaGPU,
	}
}

func (r *Resolver) tag() string {
	if r.Tag != "" {
		return r.Tag
	}
	return DefaultTag
}

// nvidiaAvailable runs the GPU probe at most once per process.
func (r *Resolver) nvidiaAvailable() bool {
	r.probeOnce.Do(func() {
		r.hasNvidia = r.probe()
	})
	return r.hasNvidia
}

// Resolve computes the asset descriptor for this host.
func (r *Resolver) Resolve() (Descriptor, error) {
	tag := r.tag()

	if r.OverrideURL != "" {
		name := path.Base(strings.TrimSuffix(r.OverrideURL, "/"))
		format, err := FormatOf(name)
		if err != nil {
			return Descriptor{}, err
		}
		d := Descriptor{Tag: tag, AssetName: name, Format: format, URL: r.OverrideURL}
		r.logVariant(d, "override")
		return d, nil
	}

	var d Descriptor
	var backend string
	switch {
	case r.goos == "darwin" && r.goarch == "arm64":
		d = r.release(tag, "llama-"+tag+"-bin-macos-arm64.zip", FormatZip)
		backend = "metal"
	case r.goos == "darwin" && r.goarch == "amd64":
		d = r.release(tag, "llama-"+tag+"-bin-macos-x64.zip", FormatZip)
		backend = "cpu"
	case r.goos == "linux" && r.goarch == "amd64":
		d = r.release(tag, "llama-"+tag+"-bin-ubuntu-x64.tar.gz", FormatTarGz)
		backend = "cpu"
	case r.goos == "windows" && r.goarch == "amd64":
		if !r.DisableGPU && r.nvidiaAvailable() {
			d = r.release(tag, "llama-"+tag+"-bin-win-cuda-cu12.4-x64.zip", FormatZip)
			auxName := "cudart-llama-bin-win-cu12.4-x64.zip"
			d.Aux = &AuxAsset{Name: auxName, URL: releaseURL(tag, auxName)}
			backend = "cuda"
		} else {
			d = r.release(tag, "llama-"+tag+"-bin-win-vulkan-x64.zip", FormatZip)
			backend = "vulkan"
		}
	default:
		return Descriptor{}, unsupportedPlatformError{goos: r.goos, goarch: r.goarch}
	}
	r.logVariant(d, backend)
	return d, nil
}

func (r *Resolver) release(tag, asset string, format ArchiveFormat) Descriptor {
	return Descriptor{Tag: tag, AssetName: asset, Format: format, URL: releaseURL(tag, asset)}
}

// logVariant emits the chosen variant once per process, not once per call.
func (r *Resolver) logVariant(d Descriptor, backend string) {
	r.logOnce.Do(func() {
		r.Log.Info().
			Str("tag", d.Tag).
			Str("asset", d.AssetName).
			Str("backend", backend).
			Msg("resolved server variant")
	})
}
