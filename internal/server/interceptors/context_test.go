package interceptors

import (
	"context"
	"testing"
)

func TestIdentityContext_RoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), "identity-1")
	identityID, ok := GetIdentityID(ctx)
	if !ok || identityID != "identity-1" {
		t.Errorf("identity_id = %q, ok = %v, want %q", identityID, ok, "identity-1")
	}
}

func TestIdentityContext_Unset(t *testing.T) {
	identityID, ok := GetIdentityID(context.Background())
	if ok || identityID != "" {
		t.Errorf("identity_id = %q, ok = %v, want empty and false", identityID, ok)
	}
}
