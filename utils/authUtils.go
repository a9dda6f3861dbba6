package utils

import (
	"strings"

	"github.com/sanjiv-madhavan/natours-api/models"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. It returns "" when the header has any other shape.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func HasRole(role models.Role, allowed map[models.Role]struct{}) bool {
	_, ok := allowed[role]
	return ok
}
