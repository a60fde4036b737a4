package client

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrypal/api/internal/config"
)

func TestNewR2Archive_IncompleteConfig(t *testing.T) {
	_, err := NewR2Archive(&config.R2Config{AccountID: "acc"})
	require.Error(t, err)
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)

	key := archiveKey("user-7", "Receipt.JPG", at)
	assert.True(t, strings.HasPrefix(key, "receipts/user-7/2024-03-09/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)

	anon := archiveKey("", "scan", at)
	assert.True(t, strings.HasPrefix(anon, "receipts/anonymous/2024-03-09/"), anon)
	assert.NotEqual(t, archiveKey("u", "a.png", at), archiveKey("u", "a.png", at))
}
