// Package objectstore holds the object storage backends for submitted images.
package objectstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Key prefixes of the two kinds of stored image
const (
	InspectionPrefix = "inspections"
	AvatarPrefix     = "avatars"
)

// ObjectKey builds the storage key inspections/<user>/<ulid><ext> for an uploaded image.
func ObjectKey(userID, filename string) string {
	return buildKey(InspectionPrefix, userID, filename)
}

// AvatarKey builds the storage key avatars/<user>/<ulid><ext> for a profile picture.
func AvatarKey(userID, filename string) string {
	return buildKey(AvatarPrefix, userID, filename)
}

func buildKey(prefix, userID, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s", prefix, userID, ulid.Make().String(), imageExt(filename))
}

// ParseKey extracts the owner and object id from a key built by ObjectKey or AvatarKey.
func ParseKey(key string) (userID, objectID string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || (parts[0] != InspectionPrefix && parts[0] != AvatarPrefix) || parts[1] == "" {
		return "", "", false
	}
	id := strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", "", false
	}
	return parts[1], id, true
}

func imageExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".heic":
		return ext
	}
	return ""
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
