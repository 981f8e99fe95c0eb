package models

import (
	"strings"
	"time"
)

type AssetKind string

const (
	AssetKindDemo  AssetKind = "demo"
	AssetKindHook  AssetKind = "hook"
	AssetKindAudio AssetKind = "audio"
)

// AssetKinds lists every kind in a stable order.
var AssetKinds = []AssetKind{AssetKindDemo, AssetKindHook, AssetKindAudio}

// ParseAssetKind accepts the kind as it appears in routes and CLI flags.
func ParseAssetKind(s string) (AssetKind, bool) {
	switch AssetKind(strings.ToLower(strings.TrimSpace(s))) {
	case AssetKindDemo:
		return AssetKindDemo, true
	case AssetKindHook:
		return AssetKindHook, true
	case AssetKindAudio:
		return AssetKindAudio, true
	}
	return "", false
}

func (k AssetKind) Valid() bool {
	_, ok := ParseAssetKind(string(k))
	return ok
}

// Prefix is the leading component of generated object names.
func (k AssetKind) Prefix() string {
	return string(k)
}

// MediaClass is the MIME type prefix a file must carry to be accepted for this kind.
func (k AssetKind) MediaClass() string {
	if k == AssetKindAudio {
		return "audio/"
	}
	return "video/"
}

type Asset struct {
	ID           string    `json:"id"`
	Kind         AssetKind `json:"kind"`
	URL          string    `json:"url"`
	ObjectPath   string    `json:"object_path"`
	OwnerID      string    `json:"user_id"`
	ProjectID    string    `json:"project_id"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}
