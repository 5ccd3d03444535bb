package identity

import (
	"path"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a stable UUID from key. Keys must be namespaced by the caller.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(trimmed))
	}
	return uid
}

// PostUUID identifies a post by its slash-separated source path.
func PostUUID(sourcePath string) uuid.UUID {
	return UUID("go-blog:post:" + path.Clean(strings.ReplaceAll(strings.TrimSpace(sourcePath), "\\", "/")))
}

// PageUUID identifies a standalone page (tab) by its source path.
func PageUUID(sourcePath string) uuid.UUID {
	return UUID("go-blog:page:" + path.Clean(strings.ReplaceAll(strings.TrimSpace(sourcePath), "\\", "/")))
}
