package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/replykit/replykit/internal/assets/appidentity"
)

// Identity values used when no identity file can be loaded.
const (
	DefaultBinaryName = "replykit"
	DefaultEnvPrefix  = "REPLYKIT_"
	DefaultConfigName = "replykit"
)

func init() {
	// Explicit paths (FULMEN_APP_IDENTITY_PATH) stay authoritative; the
	// embedded copy covers standalone binaries.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get loads the app identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Resolve loads the app identity, falling back to Default on error.
func Resolve(ctx context.Context) *appidentity.Identity {
	identity, err := Get(ctx)
	if err != nil || identity == nil {
		return Default()
	}
	return identity
}

// Default returns the built-in replykit identity.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  DefaultBinaryName,
		EnvPrefix:   DefaultEnvPrefix,
		ConfigName:  DefaultConfigName,
		Description: "Gemini reply client with throttling and retry",
	}
}
