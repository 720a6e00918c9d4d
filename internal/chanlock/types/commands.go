package types

type ProtectRequest struct {
	Resource   string `json:"resource"`
	Passphrase string `json:"passphrase"`
}

type ProtectResponse struct {
	OK         bool   `json:"ok"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
	Warning    string `json:"warning,omitempty"` // set when the platform call failed but local state stands
	ServerTime string `json:"server_time"`
}

type UnlockRequest struct {
	Resource   string `json:"resource"`
	Subject    string `json:"subject"`
	Passphrase string `json:"passphrase"`
}

type UnlockResponse struct {
	OK         bool   `json:"ok"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
	Subject    string `json:"subject"`
	ExpiresAt  string `json:"expires_at"`
	Warning    string `json:"warning,omitempty"`
	ServerTime string `json:"server_time"`
}

type ListProtectedResponse struct {
	OK         bool     `json:"ok"`
	Resources  []string `json:"resources"`
	ServerTime string   `json:"server_time"`
}
