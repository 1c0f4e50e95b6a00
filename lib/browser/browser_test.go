package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindBin(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "chromium")
	require.NoError(t, os.WriteFile(real, []byte("#!/bin/sh\n"), 0755))

	bin, err := findBin("", []string{
		filepath.Join(dir, "google-chrome"),
		real,
	})
	require.NoError(t, err)
	require.Equal(t, real, bin)

	_, err = findBin("", []string{filepath.Join(dir, "missing")})
	require.True(t, errors.Is(err, ErrNoBinary))

	bin, err = findBin(real, nil)
	require.NoError(t, err)
	require.Equal(t, real, bin)

	_, err = findBin(filepath.Join(dir, "missing"), nil)
	require.True(t, errors.Is(err, ErrNoBinary))
}

func TestMajorVersion(t *testing.T) {
	testCases := []struct {
		product string
		expect  int
		err     bool
	}{
		{product: "HeadlessChrome/123.0.6312.86", expect: 123},
		{product: "Chrome/109.0.5414.74", expect: 109},
		{product: "Chromium/98.0.4758.102", expect: 98},
		{product: "garbage", err: true},
		{product: "Chrome/notanumber.1", err: true},
	}

	for _, test := range testCases {
		major, err := majorVersion(test.product)
		if test.err {
			require.Error(t, err, test.product)
			continue
		}
		require.NoError(t, err, test.product)
		require.Equal(t, test.expect, major, test.product)
	}
}
