package scenario

import (
	"context"

	admin "firebase.google.com/go/v4"
	adminauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/woxQAQ/firebase-wasm/internal/config"
)

// TokenVerifier checks ID tokens server side. *adminauth.Client satisfies
// it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*adminauth.Token, error)
}

// NewAdminVerifier builds a verifier on the Firebase Admin SDK. Without a
// credentials file, application default credentials are used.
func NewAdminVerifier(ctx context.Context, cfg config.VerifyConfig) (TokenVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var conf *admin.Config
	if cfg.ProjectID != "" {
		conf = &admin.Config{ProjectID: cfg.ProjectID}
	}

	app, err := admin.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}
