package run

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"biasclean/domain/core"
)

// CodeVersion is stamped into every manifest; override with
// -ldflags "-X biasclean/domain/run.CodeVersion=..."
var CodeVersion = "dev"

// ErrIncompleteManifest is returned by Validate
var ErrIncompleteManifest = errors.New("incomplete run manifest")

// Manifest records everything a mitigation run's output depends on.
// Two runs with the same Fingerprint produce the same output dataset.
type Manifest struct {
	RunID            core.RunID `json:"run_id"`
	Domain           string     `json:"domain"`
	InputFingerprint core.Hash  `json:"input_fingerprint"`
	WeightsHash      core.Hash  `json:"weights_hash"`
	ConfigHash       core.Hash  `json:"config_hash"`
	Seed             int64      `json:"seed"`
	CodeVersion      string     `json:"code_version"`
	Fingerprint      core.Hash  `json:"fingerprint"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewManifest builds a manifest. weights and config are hashed through
// their YAML encoding, so fields that do not affect output (worker counts)
// should be zeroed by the caller first.
func NewManifest(runID core.RunID, domain string, input core.Hash, weights, config interface{}, seed int64) (Manifest, error) {
	weightsHash, err := HashOf(weights)
	if err != nil {
		return Manifest{}, fmt.Errorf("hash weights: %w", err)
	}
	configHash, err := HashOf(config)
	if err != nil {
		return Manifest{}, fmt.Errorf("hash config: %w", err)
	}
	return Manifest{
		RunID:            runID,
		Domain:           domain,
		InputFingerprint: input,
		WeightsHash:      weightsHash,
		ConfigHash:       configHash,
		Seed:             seed,
		CodeVersion:      CodeVersion,
		Fingerprint:      Fingerprint(input, weightsHash, configHash, seed, CodeVersion),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Fingerprint combines the determinism parameters into one hash
func Fingerprint(input, weights, config core.Hash, seed int64, codeVersion string) core.Hash {
	data := fmt.Sprintf("input:%s|weights:%s|config:%s|seed:%d|code:%s", input, weights, config, seed, codeVersion)
	return core.NewHash([]byte(data))
}

// HashOf hashes the YAML encoding of v. YAML keeps map keys sorted and
// encodes infinite thresholds, which JSON rejects.
func HashOf(v interface{}) (core.Hash, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return core.NewHash(data), nil
}

// Matches reports whether other replays this run
func (m Manifest) Matches(other Manifest) bool {
	return m.Fingerprint != "" && m.Fingerprint == other.Fingerprint
}

// Validate checks that every determinism parameter is present and the
// fingerprint agrees with them
func (m Manifest) Validate() error {
	switch {
	case core.ID(m.RunID).IsEmpty():
		return fmt.Errorf("%w: run_id is empty", ErrIncompleteManifest)
	case m.InputFingerprint.IsEmpty():
		return fmt.Errorf("%w: input_fingerprint is empty", ErrIncompleteManifest)
	case m.WeightsHash.IsEmpty() || m.ConfigHash.IsEmpty():
		return fmt.Errorf("%w: weights and config hashes are required", ErrIncompleteManifest)
	case m.CodeVersion == "":
		return fmt.Errorf("%w: code_version is empty", ErrIncompleteManifest)
	}
	if want := Fingerprint(m.InputFingerprint, m.WeightsHash, m.ConfigHash, m.Seed, m.CodeVersion); want != m.Fingerprint {
		return fmt.Errorf("%w: fingerprint %s does not match parameters", ErrIncompleteManifest, m.Fingerprint.Short())
	}
	return nil
}
