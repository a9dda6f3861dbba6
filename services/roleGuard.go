package services

import (
	"fmt"

	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/models"
	"github.com/sanjiv-madhavan/natours-api/utils"
)

// RoleGuard admits users whose role belongs to a fixed set.
type RoleGuard struct {
	allowed map[models.Role]struct{}
}

// RestrictTo builds a guard for the given roles. It panics on an empty set or
// an unknown role so a misconfigured route fails at startup.
func RestrictTo(roles ...models.Role) RoleGuard {
	if len(roles) == 0 {
		panic("services: RestrictTo needs at least one role")
	}
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		if !role.Valid() {
			panic(fmt.Sprintf("services: RestrictTo with unknown role %q", role))
		}
		allowed[role] = struct{}{}
	}
	return RoleGuard{allowed: allowed}
}

func (g RoleGuard) Check(user *models.User) error {
	if user == nil || !utils.HasRole(user.Role, g.allowed) {
		return apperror.Authorization("You do not have permission to perform this action")
	}
	return nil
}
