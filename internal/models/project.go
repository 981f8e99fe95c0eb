package models

import (
	"time"
)

type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusProcessing, ProjectStatusCompleted, ProjectStatusFailed:
		return true
	}
	return false
}

type Project struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	TargetAudience    string        `json:"target_audience"`
	Tone              string        `json:"tone"`
	PriceCategory     string        `json:"price_category"`
	Keywords          string        `json:"keywords"`
	UniqueProposition string        `json:"unique_proposition"`
	CallToAction      string        `json:"call_to_action"`
	Website           string        `json:"website"`
	Status            ProjectStatus `json:"status"`
	VideoCount        int           `json:"video_count"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ProjectUpdate carries a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Name              *string        `json:"name,omitempty"`
	Description       *string        `json:"description,omitempty"`
	TargetAudience    *string        `json:"target_audience,omitempty"`
	Tone              *string        `json:"tone,omitempty"`
	PriceCategory     *string        `json:"price_category,omitempty"`
	Keywords          *string        `json:"keywords,omitempty"`
	UniqueProposition *string        `json:"unique_proposition,omitempty"`
	CallToAction      *string        `json:"call_to_action,omitempty"`
	Website           *string        `json:"website,omitempty"`
	Status            *ProjectStatus `json:"status,omitempty"`
	VideoCount        *int           `json:"video_count,omitempty"`
}

// Apply copies the set fields of u onto p.
func (u ProjectUpdate) Apply(p *Project) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.TargetAudience != nil {
		p.TargetAudience = *u.TargetAudience
	}
	if u.Tone != nil {
		p.Tone = *u.Tone
	}
	if u.PriceCategory != nil {
		p.PriceCategory = *u.PriceCategory
	}
	if u.Keywords != nil {
		p.Keywords = *u.Keywords
	}
	if u.UniqueProposition != nil {
		p.UniqueProposition = *u.UniqueProposition
	}
	if u.CallToAction != nil {
		p.CallToAction = *u.CallToAction
	}
	if u.Website != nil {
		p.Website = *u.Website
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.VideoCount != nil {
		p.VideoCount = *u.VideoCount
	}
}

type UserAssetStats struct {
	AssetCount int64 `json:"asset_count"`
	TotalBytes int64 `json:"total_bytes"`
}
