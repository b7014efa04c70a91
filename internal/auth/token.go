// ABOUTME: Identity token format used by the auth cookie
// ABOUTME: Tokens are structurally checked only; the signature part is opaque

package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/ticketd/internal/apperr"
)

// TokenPrefix starts every identity token.
const TokenPrefix = "user-"

// ParseToken extracts the subject id from a token of the form
// "user-<subject>.<signature>". The token must split at the first '.' into
// two non-empty parts and the subject must be a base-10 unsigned integer.
// Failures are KindAuthFailTokenWrongFormat.
func ParseToken(token string) (uint64, error) {
	rest, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok {
		return 0, apperr.TokenWrongFormat("missing " + TokenPrefix + " prefix")
	}

	subject, sign, ok := strings.Cut(rest, ".")
	if !ok || subject == "" || sign == "" {
		return 0, apperr.TokenWrongFormat("expected <subject>.<signature>")
	}

	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, apperr.TokenWrongFormat(fmt.Sprintf("subject %q is not a number", subject))
	}
	return id, nil
}

// GenerateToken issues a token for subjectID. The signature part is a random
// nonce; nothing downstream verifies it.
func GenerateToken(subjectID uint64) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d.%s", TokenPrefix, subjectID, nonce)
}
