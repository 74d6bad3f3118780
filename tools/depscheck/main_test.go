package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindViolations(t *testing.T) {
	input := `{"ImportPath":"arena/server/internal/spawn","Imports":["arena/server/internal/session","time"]}
{"ImportPath":"arena/server/internal/suspension","Imports":["github.com/gorilla/websocket","arena/server/internal/net/proto"]}`

	violations, err := findViolations(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"arena/server/internal/suspension -> arena/server/internal/net/proto",
		"arena/server/internal/suspension -> github.com/gorilla/websocket",
	}, violations)
}

func TestFindViolationsRejectsGarbage(t *testing.T) {
	_, err := findViolations(strings.NewReader("{"))
	require.Error(t, err)
}
