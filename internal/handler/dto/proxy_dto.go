package dto

type ProxyRequest struct {
	ProjectID    string `json:"project_id" binding:"required"`
	SessionToken string `json:"session_token" binding:"required"`
	Message      string `json:"message" binding:"required"`
	Files        []any  `json:"files"`
	ChatOnly     bool   `json:"chat_only"`
}

type ProxyData struct {
	Response string         `json:"response"`
	Raw      map[string]any `json:"raw"`
	Usage    UsageInfo      `json:"usage"`
}

type UsageInfo struct {
	RequestsToday int   `json:"requests_today"`
	RequestsTotal int64 `json:"requests_total"`
}
