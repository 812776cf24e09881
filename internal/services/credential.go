package services

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Well-known Azurite development account, overridable for a custom emulator setup.
const (
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// storageAuth is how a laundry storage client signs in: a shared key against
// the local emulator, an Entra ID token everywhere else.
type storageAuth struct {
	accountName string
	accountKey  string
	token       azcore.TokenCredential
}

func (a storageAuth) sharedKey() bool {
	return a.token == nil
}

// isLocal reports whether a service URL points at Azurite (plain http).
func isLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

// resolveStorageAuth picks the credential for the blob, queue or table endpoint at serviceURL.
func resolveStorageAuth(service, serviceURL string) (storageAuth, error) {
	if isLocal(serviceURL) {
		slog.Info("using Azurite shared key", "service", service, "url", serviceURL)
		return storageAuth{
			accountName: envOr("AZURITE_ACCOUNT_NAME", azuriteAccountName),
			accountKey:  envOr("AZURITE_ACCOUNT_KEY", azuriteAccountKey),
		}, nil
	}

	cred, err := newDefaultAzureCredential()
	if err != nil {
		return storageAuth{}, fmt.Errorf("failed to create default azure credential for %s: %w", service, err)
	}
	return storageAuth{token: cred}, nil
}

func newDefaultAzureCredential() (azcore.TokenCredential, error) {
	slog.Info("using default Azure credentials")
	return azidentity.NewDefaultAzureCredential(nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
