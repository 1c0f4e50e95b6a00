package authflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginConfirmed(t *testing.T) {
	login := "https://portal.example.com/login"

	testCases := []struct {
		current string
		expect  bool
	}{
		{current: "https://portal.example.com/login", expect: false},
		{current: "https://portal.example.com/login/", expect: false},
		{current: "https://portal.example.com/login?error=1", expect: false},
		{current: "https://portal.example.com/dashboard", expect: true},
		{current: "https://portal.example.com/systems-overview/", expect: true},
		{current: "https://portal.example.com/profile", expect: true},
		{current: "https://portal.example.com/user/home", expect: true},
		{current: "https://idp.example.com/auth/verify", expect: false},
		{current: "https://portal.example.com/login/totp", expect: false},
		{current: "https://portal.example.com/docs/", expect: true},
	}

	for _, test := range testCases {
		require.Equal(
			t, test.expect,
			loginConfirmed(test.current, login),
			test.current,
		)
	}
}

func TestSelectorsForField(t *testing.T) {
	out := SelectorsForField("otp_value", DefaultTotpSelectors)
	require.Equal(t, "input[name=otp_value]", out[0])
	require.Equal(t, "#otp_value", out[1])
	require.Len(t, out, len(DefaultTotpSelectors)+2)

	require.Equal(
		t,
		DefaultUsernameSelectors,
		SelectorsForField("", DefaultUsernameSelectors),
	)
}
