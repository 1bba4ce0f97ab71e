package dto

const maskedSecret = "***"

// AIConfig is the effective classification configuration for a mailbox.
type AIConfig struct {
	Mode             string `json:"mode"`
	LocalModel       string `json:"localModel"`
	LocalHost        string `json:"localHost"`
	APIProvider      string `json:"apiProvider"`
	APIModel         string `json:"apiModel"`
	APIKey           string `json:"apiKey"`
	ConfirmBeforeAPI bool   `json:"confirmBeforeApi"`
}

// AIConfigUpdate is a partial settings update. Nil fields keep the
// stored value; a masked APIKey also keeps the stored value.
type AIConfigUpdate struct {
	Mode             *string `json:"mode"`
	LocalModel       *string `json:"localModel"`
	LocalHost        *string `json:"localHost"`
	APIProvider      *string `json:"apiProvider"`
	APIModel         *string `json:"apiModel"`
	APIKey           *string `json:"apiKey"`
	ConfirmBeforeAPI *bool   `json:"confirmBeforeApi"`
}

// Masked returns a copy safe to return to callers: the API key is
// replaced with a placeholder when present, left empty when unset.
func (c *AIConfig) Masked() *AIConfig {
	masked := *c
	if masked.APIKey != "" {
		masked.APIKey = maskedSecret
	}
	return &masked
}

// IsMaskedSecret reports whether a written value is the read-side mask,
// which means "keep what is stored".
func IsMaskedSecret(value string) bool {
	return value == maskedSecret
}
