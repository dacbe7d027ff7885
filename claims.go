package authcore

import (
	"errors"
	"sort"
)

// NewClaims builds the access-token claims for a user. Role assignments are
// filtered to the user's home tenant (an assignment with an empty TenantID is
// treated as global and always included), deduplicated, and sorted so two
// tokens for the same user carry identical role lists.
func NewClaims(user UserRecord) (*Claims, error) {
	if user.ID == "" {
		return nil, errors.New("user record has no ID")
	}

	roles := tenantRoles(user)

	claims := &Claims{
		Email:    user.Email,
		TenantID: user.TenantID,
		Roles:    roles,
	}
	claims.Subject = user.ID
	return claims, nil
}

func tenantRoles(user UserRecord) []string {
	if len(user.Roles) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(user.Roles))
	roles := make([]string, 0, len(user.Roles))
	for _, assignment := range user.Roles {
		if assignment.RoleID == "" {
			continue
		}
		if assignment.TenantID != "" && assignment.TenantID != user.TenantID {
			continue
		}
		if _, ok := seen[assignment.RoleID]; ok {
			continue
		}
		seen[assignment.RoleID] = struct{}{}
		roles = append(roles, assignment.RoleID)
	}
	if len(roles) == 0 {
		return nil
	}
	sort.Strings(roles)
	return roles
}

func summarize(user UserRecord, roles []string) UserSummary {
	return UserSummary{
		ID:       user.ID,
		Email:    user.Email,
		TenantID: user.TenantID,
		Roles:    roles,
	}
}
