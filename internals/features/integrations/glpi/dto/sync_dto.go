package dto

import (
	"strings"
	"time"

	syncModel "loginuv_backend/internals/features/integrations/glpi/model"
)

type SyncStartRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=manual scheduled"`
}

// Normalize defaults an absent mode to manual.
func (r *SyncStartRequest) Normalize() {
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	if r.Mode == "" {
		r.Mode = string(syncModel.RunTypeManual)
	}
}

type SyncListQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
}

type SyncStartResponse struct {
	RunID  int64  `json:"run_id"`
	Status string `json:"status"`
}

type SyncRunResponse struct {
	RunID     int64          `json:"run_id"`
	Mode      string         `json:"mode"`
	Status    string         `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	Summary   map[string]any `json:"summary"`
}

func ToSyncRunResponse(m syncModel.SyncRunModel) SyncRunResponse {
	summary := map[string]any(m.Summary)
	if summary == nil {
		summary = map[string]any{}
	}
	return SyncRunResponse{
		RunID:     m.ID,
		Mode:      string(m.RunType),
		Status:    string(m.Status),
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Summary:   summary,
	}
}

func ToSyncRunResponses(rows []syncModel.SyncRunModel) []SyncRunResponse {
	out := make([]SyncRunResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToSyncRunResponse(r))
	}
	return out
}
