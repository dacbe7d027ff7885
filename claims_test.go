package authcore

import (
	"reflect"
	"testing"
)

func TestNewClaimsScopesRolesToTenant(t *testing.T) {
	user := UserRecord{
		ID:       "u-1",
		Email:    "amy@example.com",
		TenantID: "acme",
		Roles: []RoleAssignment{
			{RoleID: "writer", TenantID: "acme"},
			{RoleID: "reader", TenantID: "acme"},
			{RoleID: "writer", TenantID: "acme"}, // duplicate
			{RoleID: "admin", TenantID: "globex"},
			{RoleID: "support", TenantID: ""}, // global
			{RoleID: "", TenantID: "acme"},    // empty role id
		},
	}

	claims, err := NewClaims(user)
	if err != nil {
		t.Fatalf("NewClaims: %v", err)
	}
	if claims.Subject != "u-1" || claims.Email != "amy@example.com" || claims.TenantID != "acme" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}

	want := []string{"reader", "support", "writer"}
	if !reflect.DeepEqual(claims.Roles, want) {
		t.Fatalf("expected roles %v, got %v", want, claims.Roles)
	}
}

func TestNewClaimsDeterministicOrder(t *testing.T) {
	user := UserRecord{
		ID:       "u-1",
		TenantID: "acme",
		Roles: []RoleAssignment{
			{RoleID: "c", TenantID: "acme"},
			{RoleID: "a", TenantID: "acme"},
			{RoleID: "b", TenantID: "acme"},
		},
	}

	first, err := NewClaims(user)
	if err != nil {
		t.Fatalf("NewClaims: %v", err)
	}

	// Same user, shuffled assignments.
	user.Roles = []RoleAssignment{
		{RoleID: "b", TenantID: "acme"},
		{RoleID: "c", TenantID: "acme"},
		{RoleID: "a", TenantID: "acme"},
	}
	second, err := NewClaims(user)
	if err != nil {
		t.Fatalf("NewClaims: %v", err)
	}
	if !reflect.DeepEqual(first.Roles, second.Roles) {
		t.Fatalf("role order not deterministic: %v vs %v", first.Roles, second.Roles)
	}
}

func TestNewClaimsRequiresUserID(t *testing.T) {
	if _, err := NewClaims(UserRecord{}); err == nil {
		t.Fatal("expected error for empty user record")
	}
}

func TestNewClaimsNoRoles(t *testing.T) {
	claims, err := NewClaims(UserRecord{ID: "u-1", TenantID: "acme"})
	if err != nil {
		t.Fatalf("NewClaims: %v", err)
	}
	if claims.Roles != nil {
		t.Fatalf("expected nil roles, got %v", claims.Roles)
	}
}
