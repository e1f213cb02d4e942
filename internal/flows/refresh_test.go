package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errReuse     = errors.New("reuse")
	errNoSession = errors.New("no session")
)

func workingRefreshDeps() RefreshDeps {
	return RefreshDeps{
		ParseRefresh: func(token string) (string, string, error) {
			if token != "good-token" {
				return "", "", errors.New("bad token")
			}
			return "u1", "rti-1", nil
		},
		GetUserByID: func(_ context.Context, userID string) (UserSnapshot, bool, error) {
			if userID != "u1" {
				return UserSnapshot{}, false, nil
			}
			return UserSnapshot{UserID: "u1", Email: "a@example.com", Role: "member"}, true, nil
		},
		NewRefreshTokenID: func() string { return "rti-2" },
		Rotate: func(_ context.Context, _, presentedID, _ string) error {
			if presentedID != "rti-1" {
				return errReuse
			}
			return nil
		},
		SignAccess:   func(string, string, string, []byte) (string, error) { return "access", nil },
		SignRefresh:  func(_, tokenID string) (string, error) { return "refresh-" + tokenID, nil },
		ReuseErr:     errReuse,
		NoSessionErr: errNoSession,
	}
}

func TestRunRefreshSuccess(t *testing.T) {
	res := RunRefresh(context.Background(), "good-token", workingRefreshDeps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got failure %d err %v", res.Failure, res.Err)
	}
	if res.Tokens.RefreshToken != "refresh-rti-2" {
		t.Fatalf("new pair must carry the next id: %+v", res.Tokens)
	}
}

func TestRunRefreshClassifiesFailures(t *testing.T) {
	t.Run("decode", func(t *testing.T) {
		res := RunRefresh(context.Background(), "garbage", workingRefreshDeps())
		if res.Failure != RefreshFailureDecode {
			t.Fatalf("expected decode failure, got %d", res.Failure)
		}
	})

	t.Run("user missing", func(t *testing.T) {
		deps := workingRefreshDeps()
		deps.GetUserByID = func(context.Context, string) (UserSnapshot, bool, error) {
			return UserSnapshot{}, false, nil
		}
		res := RunRefresh(context.Background(), "good-token", deps)
		if res.Failure != RefreshFailureUserMissing {
			t.Fatalf("expected user-missing failure, got %d", res.Failure)
		}
	})

	t.Run("reuse", func(t *testing.T) {
		deps := workingRefreshDeps()
		deps.Rotate = func(context.Context, string, string, string) error { return errReuse }
		res := RunRefresh(context.Background(), "good-token", deps)
		if res.Failure != RefreshFailureReuse {
			t.Fatalf("expected reuse failure, got %d", res.Failure)
		}
		if res.User.UserID != "u1" {
			t.Fatal("reuse result must carry the user for alerting")
		}
	})

	t.Run("no session", func(t *testing.T) {
		deps := workingRefreshDeps()
		deps.Rotate = func(context.Context, string, string, string) error { return errNoSession }
		res := RunRefresh(context.Background(), "good-token", deps)
		if res.Failure != RefreshFailureNoSession {
			t.Fatalf("expected no-session failure, got %d", res.Failure)
		}
	})

	t.Run("rotate transport error", func(t *testing.T) {
		deps := workingRefreshDeps()
		transport := errors.New("connection refused")
		deps.Rotate = func(context.Context, string, string, string) error { return transport }
		res := RunRefresh(context.Background(), "good-token", deps)
		if res.Failure != RefreshFailureRotate || !errors.Is(res.Err, transport) {
			t.Fatalf("expected rotate failure with cause, got %d %v", res.Failure, res.Err)
		}
	})
}

func TestRunRefreshRotatesBeforeSigning(t *testing.T) {
	deps := workingRefreshDeps()
	rotated := false
	deps.Rotate = func(context.Context, string, string, string) error {
		rotated = true
		return nil
	}
	deps.SignAccess = func(string, string, string, []byte) (string, error) {
		if !rotated {
			t.Fatal("signing must happen after rotation commits")
		}
		return "", errors.New("signer down")
	}
	res := RunRefresh(context.Background(), "good-token", deps)
	if res.Failure != RefreshFailureIssue {
		t.Fatalf("expected issue failure, got %d", res.Failure)
	}
}
