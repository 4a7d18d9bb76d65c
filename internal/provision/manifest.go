package provision

import (
	"encoding/json"
	"os"
)

// Manifest records the provisioned binary so later processes can skip the
// download. It is stale when the binary is gone or the resolver would now
// choose a different asset (e.g. a GPU driver appeared).
type Manifest struct {
	Tag        string `json:"tag"`
	AssetName  string `json:"assetName"`
	BinaryPath string `json:"binaryPath"`
}

const manifestName = "manifest.json"

func loadManifest(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, err
	}
	return m, nil
}

func saveManifest(path string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
