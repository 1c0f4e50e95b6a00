package totp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// base32 encoding of the RFC 6238 test seed "12345678901234567890"
const rfcSeed = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateRfcVectors(t *testing.T) {
	// 6 digit truncations of the RFC 6238 appendix B vectors
	testCases := []struct {
		at     int64
		expect string
	}{
		{at: 59, expect: "287082"},
		{at: 1111111109, expect: "081804"},
		{at: 1111111111, expect: "050471"},
		{at: 1234567890, expect: "005924"},
		{at: 2000000000, expect: "279037"},
	}

	for _, test := range testCases {
		code, err := Generate(rfcSeed, time.Unix(test.at, 0).UTC())
		require.NoError(t, err)
		require.Equal(t, test.expect, code.Value)
	}
}

func TestGenerateNormalizesSeed(t *testing.T) {
	reference, err := Generate(rfcSeed, time.Unix(59, 0))
	require.NoError(t, err)

	lower, err := Generate("gezdgnbvgy3tqojqgezdgnbvgy3tqojq", time.Unix(59, 0))
	require.NoError(t, err)
	require.Equal(t, reference.Value, lower.Value)

	spaced, err := Generate("GEZD GNBV GY3T QOJQ GEZD GNBV GY3T QOJQ", time.Unix(59, 0))
	require.NoError(t, err)
	require.Equal(t, reference.Value, spaced.Value)
}

func TestValidateSeed(t *testing.T) {
	require.NoError(t, ValidateSeed(rfcSeed))
	require.NoError(t, ValidateSeed("jbswy3dpehpk3pxp"))
	require.Error(t, ValidateSeed(""))
	require.Error(t, ValidateSeed("not!base32@at#all"))
}

func TestCodeWindow(t *testing.T) {
	generated := time.Unix(65, 0) // window [60, 90)
	code := Code{Value: "000000", GeneratedAt: generated}

	require.Equal(t, time.Unix(90, 0), code.ExpiresAt())
	require.False(t, code.Expired(time.Unix(89, 0)))
	require.True(t, code.Expired(time.Unix(90, 0)))
	require.True(t, code.Expired(time.Unix(120, 0)))

	require.Equal(t, 25*time.Second, code.Remaining(time.Unix(65, 0)))
	require.Equal(t, time.Duration(0), code.Remaining(time.Unix(95, 0)))
}
