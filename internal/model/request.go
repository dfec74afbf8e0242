package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UploadResponse struct {
	Uploaded []string `json:"uploaded"`
}

type CleanupResponse struct {
	Deleted int `json:"deleted"`
}
