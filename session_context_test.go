package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/softprint/authcore/profile"
	"github.com/softprint/authcore/provider"
)

func newTestContext(t *testing.T, mock *mockProvider) *SessionContext {
	t.Helper()

	svc := newTestService(t, mock, profile.NewMemoryStore())
	sc := NewSessionContext(svc)
	t.Cleanup(sc.Close)
	return sc
}

func TestContextInitialize(t *testing.T) {
	sc := newTestContext(t, newMockProvider())

	if !sc.Initializing() {
		t.Fatal("fresh context must report initializing")
	}
	if err := sc.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if sc.Initializing() {
		t.Fatal("initializing flag not cleared")
	}
	// Nothing persisted: the surface proceeds unauthenticated.
	if sc.IsAuthenticated() {
		t.Fatal("empty restore produced an authenticated context")
	}
}

func TestContextSignInCachesState(t *testing.T) {
	sc := newTestContext(t, newMockProvider())

	result, err := sc.SignIn(context.Background(), "a@example.com", "password123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !sc.IsAuthenticated() {
		t.Fatal("context not authenticated after signin")
	}
	if sc.CurrentProfile() == nil || sc.CurrentProfile().ID != result.Profile.ID {
		t.Fatalf("cached profile = %+v", sc.CurrentProfile())
	}
}

func TestContextSignInDeduplicates(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	mock := newMockProvider()
	mock.signInFn = func(string, string) (*provider.Session, error) {
		close(entered)
		<-release
		return providerSession("user-1", map[string]any{"name": "Test User", "role": "buyer"}), nil
	}
	sc := newTestContext(t, mock)

	var wg sync.WaitGroup
	results := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := sc.SignIn(context.Background(), "a@example.com", "password123")
		results <- err
	}()
	<-entered

	if !sc.Loading() {
		t.Fatal("loading flag not set during in-flight operation")
	}

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sc.SignIn(context.Background(), "a@example.com", "password123")
			results <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("signin: %v", err)
		}
	}
	if got := mock.count("signin"); got != 1 {
		t.Fatalf("provider signin called %d times, want 1", got)
	}
	if sc.Loading() {
		t.Fatal("loading flag stuck after operations settled")
	}
}

func TestContextCloseDiscardsInFlightCommit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	mock := newMockProvider()
	mock.signInFn = func(string, string) (*provider.Session, error) {
		close(entered)
		<-release
		return providerSession("user-1", nil), nil
	}
	sc := newTestContext(t, mock)

	done := make(chan error, 1)
	go func() {
		_, err := sc.SignIn(context.Background(), "a@example.com", "password123")
		done <- err
	}()
	<-entered

	// The surface tears down while the operation is still running.
	sc.Close()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("signin: %v", err)
	}
	if sc.IsAuthenticated() || sc.CurrentSession() != nil || sc.CurrentProfile() != nil {
		t.Fatal("closed context resurrected state from an in-flight operation")
	}
}

func TestContextSignOutDropsState(t *testing.T) {
	sc := newTestContext(t, newMockProvider())

	if _, err := sc.SignIn(context.Background(), "a@example.com", "password123"); err != nil {
		t.Fatalf("signin: %v", err)
	}

	sc.SignOut(context.Background())
	if sc.IsAuthenticated() || sc.CurrentSession() != nil || sc.CurrentProfile() != nil {
		t.Fatal("state survived sign-out")
	}
}

func TestContextRefreshReplacesSession(t *testing.T) {
	mock := newMockProvider()
	mock.refreshFn = func(string) (*provider.Session, error) {
		sess := providerSession("user-1", nil)
		sess.AccessToken = "at-renewed"
		return sess, nil
	}
	sc := newTestContext(t, mock)

	if _, err := sc.SignIn(context.Background(), "a@example.com", "password123"); err != nil {
		t.Fatalf("signin: %v", err)
	}
	before := sc.CurrentProfile()

	if err := sc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := sc.CurrentSession().AccessToken; got != "at-renewed" {
		t.Fatalf("cached access token = %q", got)
	}
	// Refresh rotates tokens only; the cached profile is untouched.
	if sc.CurrentProfile() != before {
		t.Fatal("refresh replaced the cached profile")
	}
}

func TestContextReloadProfile(t *testing.T) {
	sc := newTestContext(t, newMockProvider())

	result, err := sc.SignIn(context.Background(), "a@example.com", "password123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	p := *result.Profile
	p.Name = "Renamed"
	if _, err := sc.UpdateProfile(context.Background(), &p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if sc.CurrentProfile().Name != "Renamed" {
		t.Fatal("update did not cache the written profile")
	}

	prof, err := sc.ReloadProfile(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if prof.Name != "Renamed" || sc.CurrentProfile().Name != "Renamed" {
		t.Fatal("reload did not pick up the written profile")
	}
}

func TestContextResetPasswordDropsState(t *testing.T) {
	sc := newTestContext(t, newMockProvider())

	if _, err := sc.SignIn(context.Background(), "a@example.com", "password123"); err != nil {
		t.Fatalf("signin: %v", err)
	}

	if err := sc.ResetPassword(context.Background(), "recovery-token", "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if sc.IsAuthenticated() || sc.CurrentSession() != nil {
		t.Fatal("cached state survived a successful password reset")
	}
}

func TestContextResendVerification(t *testing.T) {
	mock := newMockProvider()
	sc := newTestContext(t, mock)

	if err := sc.ResendVerification(context.Background(), "a@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if got := mock.count("resend"); got != 1 {
		t.Fatalf("provider resend called %d times, want 1", got)
	}
}
