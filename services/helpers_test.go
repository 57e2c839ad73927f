package services

import (
	"errors"
	"testing"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/stretchr/testify/require"
)

const (
	aliceID = "0b6f3c1e-5b2a-4d7e-9c1f-2a3b4c5d6e7f"
	bobID   = "8d9e0f1a-2b3c-4d5e-8f6a-7b8c9d0e1f2a"
	carolID = "3c4d5e6f-7a8b-4c9d-8e0f-1a2b3c4d5e6f"
)

func as(userID string) storage.Access {
	return storage.ScopedTo(userID, "token-"+userID[:8])
}

// requireKind fails the test unless err is a service error of kind.
func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se), "expected *services.Error, got %T: %v", err, err)
	require.Equal(t, kind, se.Kind, se.Message)
	return se
}
