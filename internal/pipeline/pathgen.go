package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/google/uuid"
)

// PathGenerator names the storage object for a file. Names are unique in
// practice, not by construction.
type PathGenerator interface {
	ObjectPath(ownerID string, kind models.AssetKind, filename string) string
}

// RandomPathGenerator builds {owner}/{kind}_{token}_{unixMillis}.{ext}.
type RandomPathGenerator struct {
	Token func() string
	Now   func() time.Time
}

func NewRandomPathGenerator() *RandomPathGenerator {
	return &RandomPathGenerator{Token: randomToken, Now: time.Now}
}

func (g *RandomPathGenerator) ObjectPath(ownerID string, kind models.AssetKind, filename string) string {
	token := randomToken
	if g.Token != nil {
		token = g.Token
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	name := fmt.Sprintf("%s_%s_%d", kind.Prefix(), token(), now().UnixMilli())
	if ext := FileExtension(filename); ext != "" {
		name += "." + ext
	}
	return ownerID + "/" + name
}

// ValidOwnerID reports whether id can lead an object path without reaching
// outside its own prefix.
func ValidOwnerID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// FileExtension returns the lower-cased suffix after the last dot, or "" when
// the name has none. Dotfiles like ".mp4" have no extension.
func FileExtension(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
