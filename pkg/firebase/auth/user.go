package auth

import (
	"context"
	"time"

	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Metadata holds the account timestamps as the SDK reports them (RFC 1123
// strings in UTC).
type Metadata struct {
	CreationTime   string `js:"creationTime"`
	LastSignInTime string `js:"lastSignInTime"`
}

// Created parses CreationTime.
func (m Metadata) Created() (time.Time, error) {
	return time.Parse(time.RFC1123, m.CreationTime)
}

// LastSignIn parses LastSignInTime.
func (m Metadata) LastSignIn() (time.Time, error) {
	return time.Parse(time.RFC1123, m.LastSignInTime)
}

// UserInfo is one linked identity provider profile.
type UserInfo struct {
	ProviderID  string `js:"providerId"`
	UID         string `js:"uid"`
	Email       string `js:"email"`
	DisplayName string `js:"displayName"`
	PhotoURL    string `js:"photoURL"`
	PhoneNumber string `js:"phoneNumber"`
}

// User is a signed-in account. The fields are a snapshot taken when the
// handle was decoded; Reload and UpdateProfile refresh them.
type User struct {
	UID           string     `js:"uid,required"`
	Email         string     `js:"email"`
	EmailVerified bool       `js:"emailVerified"`
	DisplayName   string     `js:"displayName"`
	PhotoURL      string     `js:"photoURL"`
	PhoneNumber   string     `js:"phoneNumber"`
	IsAnonymous   bool       `js:"isAnonymous"`
	ProviderID    string     `js:"providerId"`
	TenantID      string     `js:"tenantId"`
	Metadata      Metadata   `js:"metadata"`
	ProviderData  []UserInfo `js:"providerData"`

	auth  *Auth
	value jsrt.Value
}

// decodeUser runs on the JS thread. Nullish values decode to nil.
func (a *Auth) decodeUser(v jsrt.Value) (*User, error) {
	if jsrt.IsNullish(v) {
		return nil, nil
	}
	u := &User{auth: a, value: v}
	if err := serde.Unmarshal(v, u); err != nil {
		return nil, err
	}
	return u, nil
}

// JSValue returns the underlying User object.
func (u *User) JSValue() jsrt.Value { return u.value }

// IDToken returns the user's ID token, refreshing it when forceRefresh is
// set or it has expired.
func (u *User) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	token, err := promise.Await(ctx, u.auth.realm, "auth.getIdToken", func() (jsrt.Value, error) {
		return u.value.Call("getIdToken", u.auth.realm.ValueOf(forceRefresh))
	}, func(v jsrt.Value) (string, error) {
		var s string
		err := serde.Unmarshal(v, &s)
		return s, err
	})
	return token, wrapError(err)
}

// Profile holds the fields UpdateProfile changes. Nil fields are left
// untouched.
type Profile struct {
	DisplayName *string `js:"displayName,omitempty"`
	PhotoURL    *string `js:"photoURL,omitempty"`
}

// UpdateProfile calls updateProfile(user, profile) and refreshes u.
func (u *User) UpdateProfile(ctx context.Context, p Profile) error {
	realm := u.auth.realm
	fresh, err := promise.Await(ctx, realm, "auth.updateProfile", func() (jsrt.Value, error) {
		arg, err := serde.Marshal(realm, p)
		if err != nil {
			return nil, err
		}
		return sdk.Call(realm, sdk.Auth, "updateProfile", u.value, arg)
	}, u.redecode)
	if err != nil {
		return wrapError(err)
	}
	u.copyFrom(fresh)
	return nil
}

// Reload refreshes u from the server.
func (u *User) Reload(ctx context.Context) error {
	fresh, err := promise.Await(ctx, u.auth.realm, "auth.reload", func() (jsrt.Value, error) {
		return u.value.Call("reload")
	}, u.redecode)
	if err != nil {
		return wrapError(err)
	}
	u.copyFrom(fresh)
	return nil
}

// Delete calls deleteUser(user) and signs the user out.
func (u *User) Delete(ctx context.Context) error {
	err := promise.Void(ctx, u.auth.realm, "auth.deleteUser", func() (jsrt.Value, error) {
		return sdk.Call(u.auth.realm, sdk.Auth, "deleteUser", u.value)
	})
	if err != nil {
		return wrapError(err)
	}
	u.auth.logger.Info("User deleted")
	return nil
}

// redecode ignores the settled value and reads u's JS object again.
func (u *User) redecode(jsrt.Value) (*User, error) {
	return u.auth.decodeUser(u.value)
}

func (u *User) copyFrom(fresh *User) {
	if fresh != nil {
		*u = *fresh
	}
}
