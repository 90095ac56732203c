package sip

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ghettovoice/sipsanity/internal/util"
)

// MagicCookie is the RFC 3261 branch prefix.
const MagicCookie = "z9hG4bK"

// InstanceIDLen is the length of identifiers produced by [NewInstanceID].
const InstanceIDLen = 5

func newUUIDHex() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

// NewTag generates a globally unique From/To tag.
func NewTag() string { return newUUIDHex()[:16] }

// NewBranch generates a Via branch with the RFC 3261 magic cookie.
func NewBranch() string { return MagicCookie + "." + newUUIDHex() }

// NewInstanceID generates a short random identifier used as the Call-ID prefix of a user agent.
func NewInstanceID() string { return util.RandStringLC(InstanceIDLen) }

// NewCallID generates a Call-ID starting with instanceID.
// Requests carrying such a Call-ID are recognized as loop-backs by a checker
// configured with the same instance id.
func NewCallID(instanceID string) string { return instanceID + util.RandStringLC(15) }
