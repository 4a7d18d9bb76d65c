// Package assets resolves which llama-server release build to run on the
// current host: platform, CPU architecture, and (on Windows) the detected
// GPU backend select a release asset; operator overrides always win.
package assets

import (
	"fmt"
	"strings"
)

// ArchiveFormat identifies how a release asset is packed.
type ArchiveFormat string

const (
	FormatZip   ArchiveFormat = "zip"
	FormatTarGz ArchiveFormat = "tar.gz"
)

// DefaultTag is the llama.cpp release tag provisioned when no override is set.
const DefaultTag = "b4689"

const releaseURLBase = "https://github.com/ggml-org/llama.cpp/releases/download"

// AuxAsset names an auxiliary runtime-library archive some backends ship
// separately (e.g. the CUDA runtime DLLs on Windows).
type AuxAsset struct {
	Name string
	URL  string
}

// Descriptor describes the release asset to download for this host.
// Computed fresh on every Resolve call; never persisted.
type Descriptor struct {
	Tag       string
	AssetName string
	Format    ArchiveFormat
	URL       string
	Aux       *AuxAsset
}

// BinaryName returns the server executable name inside the archive.
func BinaryName(goos string) string {
	if goos == "windows" {
		return "llama-server.exe"
	}
	return "llama-server"
}

// FormatOf derives the archive format from an asset or URL suffix.
func FormatOf(name string) (ArchiveFormat, error) {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	}
	return "", unsupportedArchiveFormatError{name: name}
}

func releaseURL(tag, asset string) string {
	return fmt.Sprintf("%s/%s/%s", releaseURLBase, tag, asset)
}
