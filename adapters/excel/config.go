package excel

// ReaderConfig controls column-kind inference
type ReaderConfig struct {
	// Sheet is the worksheet to read; empty means the first sheet
	Sheet string `json:"sheet" yaml:"sheet"`
	// NullTokens are cell values read as missing (matched case-insensitively)
	NullTokens []string `json:"null_tokens" yaml:"null_tokens"`
	// Categorical forces columns to categorical even when every cell parses as a number
	Categorical []string `json:"categorical" yaml:"categorical"`
}

// DefaultReaderConfig returns sensible defaults for dataset files
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		NullTokens: []string{"", "na", "n/a", "nan", "null", "none"},
	}
}
