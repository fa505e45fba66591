package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashContent returns the hex-encoded SHA-256 of content, or "" for empty
// content.
func hashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// HashJSON hashes the JSON encoding of v. encoding/json emits struct fields
// in declaration order and map keys sorted, so equal values hash equally.
// A nil v hashes to "".
func HashJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "", nil
	}
	return hashContent(data), nil
}
