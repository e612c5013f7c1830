package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "add two numbers")
		state.Stage = domain.StageVerify
		state.History = []string{"Intake: queued task", domain.ResearchNotesPrefix + "use a function"}
		state.ArtifactPath = "add.py"
		state.ArtifactContent = "def add(a, b):\n    return a + b\n"
		state.VerifyCommand = "python add.py"
		state.FailureFeedback = "AssertionError"
		state.Rounds = 2

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.SessionID, loaded.SessionID)
		assert.Equal(t, state.Stage, loaded.Stage)
		assert.Equal(t, state.History, loaded.History)
		assert.Equal(t, state.Task, loaded.Task)
		assert.Equal(t, state.ArtifactPath, loaded.ArtifactPath)
		assert.Equal(t, state.ArtifactContent, loaded.ArtifactContent)
		assert.Equal(t, state.VerifyCommand, loaded.VerifyCommand)
		assert.Equal(t, state.FailureFeedback, loaded.FailureFeedback)
		assert.Equal(t, state.Rounds, loaded.Rounds)
	})

	t.Run("Load Returns Isolated Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.History = append(loaded.History, "mutated")
		loaded.Task = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Task)
		assert.NotContains(t, again.History, "mutated")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "task"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "task"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "task"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
