package scenario

import (
	"context"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/firebase-wasm/pkg/firebase/auth"
)

type credentialsArgs struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func (a *credentialsArgs) decode(op string, node *yaml.Node) error {
	if err := decodeArgs(op, node, a); err != nil {
		return err
	}
	if err := required(op, "email", a.Email); err != nil {
		return err
	}
	return required(op, "password", a.Password)
}

type userResult struct {
	UID           string `yaml:"uid"`
	Email         string `yaml:"email,omitempty"`
	EmailVerified bool   `yaml:"email_verified"`
	DisplayName   string `yaml:"display_name,omitempty"`
	IsAnonymous   bool   `yaml:"is_anonymous"`
	ProviderID    string `yaml:"provider_id,omitempty"`
}

func summarizeUser(u *auth.User) *userResult {
	if u == nil {
		return nil
	}
	return &userResult{
		UID:           u.UID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		DisplayName:   u.DisplayName,
		IsAnonymous:   u.IsAnonymous,
		ProviderID:    u.ProviderID,
	}
}

type credentialResult struct {
	User          *userResult `yaml:"user"`
	OperationType string      `yaml:"operation_type"`
	ProviderID    string      `yaml:"provider_id,omitempty"`
}

func summarizeCredential(c *auth.UserCredential) *credentialResult {
	return &credentialResult{
		User:          summarizeUser(c.User),
		OperationType: c.OperationType,
		ProviderID:    c.ProviderID,
	}
}

func authSignUp(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args credentialsArgs
	if err := args.decode("auth.signUp", node); err != nil {
		return nil, err
	}
	a, err := env.Auth(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := a.CreateUserWithEmailAndPassword(ctx, args.Email, args.Password)
	if err != nil {
		return nil, err
	}
	return summarizeCredential(cred), nil
}

func authSignIn(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args credentialsArgs
	if err := args.decode("auth.signIn", node); err != nil {
		return nil, err
	}
	a, err := env.Auth(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := a.SignInWithEmailAndPassword(ctx, args.Email, args.Password)
	if err != nil {
		return nil, err
	}
	return summarizeCredential(cred), nil
}

func authSignInAnonymously(ctx context.Context, env *Env, _ *yaml.Node) (any, error) {
	a, err := env.Auth(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := a.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}
	return summarizeCredential(cred), nil
}

func authSignOut(ctx context.Context, env *Env, _ *yaml.Node) (any, error) {
	a, err := env.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return nil, a.SignOut(ctx)
}

func authCurrentUser(ctx context.Context, env *Env, _ *yaml.Node) (any, error) {
	a, err := env.Auth(ctx)
	if err != nil {
		return nil, err
	}
	u, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": summarizeUser(u)}, nil
}

func currentUser(ctx context.Context, env *Env, op string) (*auth.User, error) {
	a, err := env.Auth(ctx)
	if err != nil {
		return nil, err
	}
	u, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &ArgsError{Op: op, Err: errNotSignedIn}
	}
	return u, nil
}

type idTokenArgs struct {
	Force bool `yaml:"force"`
}

func authIDToken(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args idTokenArgs
	if err := decodeArgs("auth.idToken", node, &args); err != nil {
		return nil, err
	}
	u, err := currentUser(ctx, env, "auth.idToken")
	if err != nil {
		return nil, err
	}
	token, err := u.IDToken(ctx, args.Force)
	if err != nil {
		return nil, err
	}
	return map[string]any{"token": token}, nil
}

type verifyArgs struct {
	// Token defaults to the current user's ID token.
	Token string `yaml:"token"`
}

type verifyResult struct {
	UID            string    `yaml:"uid"`
	Issuer         string    `yaml:"issuer"`
	Audience       string    `yaml:"audience"`
	SignInProvider string    `yaml:"sign_in_provider,omitempty"`
	IssuedAt       time.Time `yaml:"issued_at"`
	Expires        time.Time `yaml:"expires"`
}

func authVerifyIDToken(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args verifyArgs
	if err := decodeArgs("auth.verifyIdToken", node, &args); err != nil {
		return nil, err
	}
	verifier, err := env.Verifier(ctx)
	if err != nil {
		return nil, err
	}
	if args.Token == "" {
		u, err := currentUser(ctx, env, "auth.verifyIdToken")
		if err != nil {
			return nil, err
		}
		if args.Token, err = u.IDToken(ctx, false); err != nil {
			return nil, err
		}
	}
	tok, err := verifier.VerifyIDToken(ctx, args.Token)
	if err != nil {
		return nil, err
	}
	return &verifyResult{
		UID:            tok.UID,
		Issuer:         tok.Issuer,
		Audience:       tok.Audience,
		SignInProvider: tok.Firebase.SignInProvider,
		IssuedAt:       time.Unix(tok.IssuedAt, 0).UTC(),
		Expires:        time.Unix(tok.Expires, 0).UTC(),
	}, nil
}
