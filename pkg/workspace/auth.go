package workspace

import (
	"context"
	"fmt"

	"locus/pkg/client"
	"locus/pkg/store"
)

func (w *Workspace) Login(ctx context.Context, username, password string) (store.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	u, err := w.api.Login(ctx, client.LoginRequest{Username: username, Password: password})
	if err != nil {
		return store.User{}, w.fail("login", err)
	}
	if err := w.adopt(u); err != nil {
		return store.User{}, w.fail("login", err)
	}
	return u, nil
}

func (w *Workspace) Register(ctx context.Context, req client.RegisterRequest) (store.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	u, err := w.api.Register(ctx, req)
	if err != nil {
		return store.User{}, w.fail("register", err)
	}
	if err := w.adopt(u); err != nil {
		return store.User{}, w.fail("register", err)
	}
	return u, nil
}

func (w *Workspace) adopt(u store.User) error {
	if err := w.users.Save(u); err != nil {
		return fmt.Errorf("persist login: %w", err)
	}
	w.user = &u
	w.api.SetToken(u.Token)
	return nil
}

// Logout forgets the user locally even when the server cannot be told.
func (w *Workspace) Logout(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	remoteErr := w.api.Logout(ctx)

	if err := w.users.Clear(); err != nil {
		return w.fail("logout", err)
	}
	w.user = nil
	w.api.SetToken("")

	if remoteErr != nil {
		return w.fail("logout", remoteErr)
	}
	return nil
}
