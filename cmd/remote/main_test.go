package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/server/auth"
)

func TestPrintToken(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printToken([]string{"-s", "k", "-sub", "MOSIP-1", "-role", "health-worker", "-ttl", "1h"}, &out))

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "MOSIP-1", claims.Subject)
	assert.Equal(t, "health-worker", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestPrintToken_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, printToken([]string{"-sub", "MOSIP-1"}, &out), "no secret")
	assert.Error(t, printToken([]string{"-s", "k"}, &out), "no subject")
	assert.Empty(t, out.String())
}
