// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duphash

import (
	"crypto/sha1"
	"encoding/hex"
)

// Digest returns prefix+text when NoHash is set, otherwise the lowercase
// hex SHA-1 of prefix+text. NoHash wins over Normal.
func Digest(text, prefix string, flags Flags) string {
	if flags.NoHash {
		return prefix + text
	}
	h := sha1.New()
	h.Write([]byte(prefix))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
