package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgjournals/credstore"
)

// 317253 is the first uniform draw that maps onto code "417253".
const draw417253 = 317253

func TestRegistrationEndToEnd(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			h := newHarness(t, be, options{random: fixedCode(draw417253)})
			ctx := context.Background()

			require.NoError(t, h.SendVerificationCode(ctx, "a@x.com"))
			require.Equal(t, "417253", h.mailer.code("a@x.com"))

			ok, err := h.ConfirmVerificationCode(ctx, "a@x.com", "417253")
			require.NoError(t, err)
			require.True(t, ok)

			res, err := h.Register(ctx, credstore.RegisterRequest{
				Email:           "a@x.com",
				Name:            "Ada",
				Password:        "correct-horse",
				PasswordConfirm: "correct-horse",
			})
			require.NoError(t, err)
			assert.Regexp(t, hexToken, res.Token)
			assert.Equal(t, string(credstore.RoleAuthor), res.Role)

			data, err := h.Store().GetSession(ctx, res.Token)
			require.NoError(t, err)
			require.NotNil(t, data)
			assert.Equal(t, "a@x.com", data.Email)
			assert.Equal(t, res.UserID, data.UserID)

			require.NoError(t, h.Store().DestroySession(ctx, res.Token))
			data, err = h.Store().GetSession(ctx, res.Token)
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func register(t *testing.T, h *harness, email, pw string) *credstore.AuthResult {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, h.SendVerificationCode(ctx, email))
	ok, err := h.ConfirmVerificationCode(ctx, email, h.mailer.code(email))
	require.NoError(t, err)
	require.True(t, ok)

	res, err := h.Register(ctx, credstore.RegisterRequest{
		Email:           email,
		Name:            "Test Author",
		Password:        pw,
		PasswordConfirm: pw,
	})
	require.NoError(t, err)
	return res
}

func TestRegisterRequiresVerifiedEmail(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		_, err := h.Register(context.Background(), credstore.RegisterRequest{
			Email:           "nobody@x.com",
			Name:            "Nobody",
			Password:        "correct-horse",
			PasswordConfirm: "correct-horse",
		})
		require.ErrorIs(t, err, credstore.ErrVerificationRequired)
	})
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		register(t, h, "dup@x.com", "correct-horse")

		// A fresh verification does not let the same email register twice.
		h.advance(2 * time.Minute)
		_, err := registerErr(h, "dup@x.com", "another-horse")
		require.ErrorIs(t, err, credstore.ErrAccountExists)
	})
}

func registerErr(h *harness, email, pw string) (*credstore.AuthResult, error) {
	ctx := context.Background()
	if err := h.SendVerificationCode(ctx, email); err != nil {
		return nil, err
	}
	if _, err := h.ConfirmVerificationCode(ctx, email, h.mailer.code(email)); err != nil {
		return nil, err
	}
	return h.Register(ctx, credstore.RegisterRequest{
		Email:           email,
		Name:            "Test Author",
		Password:        pw,
		PasswordConfirm: pw,
	})
}

func TestLoginLogoutAcrossBackends(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		ctx := context.Background()
		register(t, h, "login@x.com", "correct-horse")

		res, err := h.Login(ctx, "Login@X.com", "correct-horse")
		require.NoError(t, err)

		user, err := h.Sessions().Load(ctx, cookieHeader(res.SetCookie))
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "login@x.com", user.Email)

		cleared, err := h.Logout(ctx, cookieHeader(res.SetCookie))
		require.NoError(t, err)
		assert.Contains(t, cleared, "Max-Age=0")

		user, err = h.Sessions().Load(ctx, cookieHeader(res.SetCookie))
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		ctx := context.Background()
		register(t, h, "known@x.com", "correct-horse")

		_, wrongPassword := h.Login(ctx, "known@x.com", "wrong-horse")
		_, unknownEmail := h.Login(ctx, "unknown@x.com", "wrong-horse")

		require.ErrorIs(t, wrongPassword, credstore.ErrInvalidCredentials)
		require.ErrorIs(t, unknownEmail, credstore.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	})
}

func TestSendCodeCooldownAcrossBackends(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		ctx := context.Background()

		require.NoError(t, h.SendVerificationCode(ctx, "slow@x.com"))
		require.ErrorIs(t, h.SendVerificationCode(ctx, "slow@x.com"), credstore.ErrRateLimited)

		h.advance(61 * time.Second)
		require.NoError(t, h.SendVerificationCode(ctx, "slow@x.com"))
	})
}

func TestPasswordResetAcrossBackends(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		ctx := context.Background()
		register(t, h, "reset@x.com", "correct-horse")

		require.NoError(t, h.RequestPasswordReset(ctx, "reset@x.com"))
		raw := h.mailer.reset("reset@x.com")
		require.NotEmpty(t, raw)

		require.NoError(t, h.ResetPassword(ctx, raw, "battery-staple", "battery-staple"))

		_, err := h.Login(ctx, "reset@x.com", "correct-horse")
		require.ErrorIs(t, err, credstore.ErrInvalidCredentials)
		_, err = h.Login(ctx, "reset@x.com", "battery-staple")
		require.NoError(t, err)

		// The grant is single use.
		require.ErrorIs(t, h.ResetPassword(ctx, raw, "third-password", "third-password"), credstore.ErrResetInvalid)
	})
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		require.NoError(t, h.RequestPasswordReset(context.Background(), "ghost@x.com"))
		assert.Empty(t, h.mailer.reset("ghost@x.com"))
	})
}

func TestPasswordResetTokenExpires(t *testing.T) {
	forEachBackend(t, options{}, func(t *testing.T, h *harness) {
		ctx := context.Background()
		register(t, h, "late@x.com", "correct-horse")

		require.NoError(t, h.RequestPasswordReset(ctx, "late@x.com"))
		raw := h.mailer.reset("late@x.com")

		h.advance(31 * time.Minute)
		require.ErrorIs(t, h.ResetPassword(ctx, raw, "battery-staple", "battery-staple"), credstore.ErrResetInvalid)
	})
}
