package domain

// TokenGrant is what every successful authentication flow returns.
type TokenGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "bearer"
}

// DeviceSubjectPrefix distinguishes device-token subjects from user emails.
const DeviceSubjectPrefix = "device:"
