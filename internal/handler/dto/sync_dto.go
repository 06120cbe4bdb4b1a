package dto

import (
	"encoding/json"
	"time"
)

const (
	SyncActionSave  = "save"
	SyncActionLoad  = "load"
	SyncActionClear = "clear"
)

type SyncRequest struct {
	Action    string          `json:"action" binding:"required,oneof=save load clear"`
	ProjectID string          `json:"project_id" binding:"required"`
	Messages  json.RawMessage `json:"messages"`
}

type SyncSaveData struct {
	Saved int `json:"saved"`
}

type SyncLoadData struct {
	Messages  json.RawMessage `json:"messages"`
	Count     int             `json:"count"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}
