package form

import (
	"context"
	"errors"
	"testing"

	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("from store", func(t *testing.T) {
		st := new(MockStore)
		mgr := state.NewManager()
		older := &types.Form{ID: "a", CreatedAt: fixedNow}
		newer := &types.Form{ID: "b", CreatedAt: fixedNow.Add(1)}
		st.On("ListForms", ctx).Return([]*types.Form{older, newer}, nil)
		st.On("ListSubmissions", ctx).Return([]*types.Submission{{ID: "s", FormID: "a"}}, nil)
		st.On("ListAuditLogs", ctx).Return([]types.AuditLog{{ID: "l"}}, nil)

		source, err := Hydrate(ctx, st, mgr)
		require.NoError(t, err)
		assert.Equal(t, HydratedFromStore, source)

		snap := mgr.Snapshot()
		require.Len(t, snap.Forms, 2)
		assert.Equal(t, "b", snap.Forms[0].ID)
		assert.Len(t, snap.Submissions, 1)
		assert.Len(t, snap.AuditLogs, 1)
	})

	t.Run("permission denied loads seed", func(t *testing.T) {
		st := new(MockStore)
		mgr := state.NewManager()
		st.On("ListForms", ctx).Return(nil, errors.New(`(42501) permission denied for table forms`))

		source, err := Hydrate(ctx, st, mgr)
		require.NoError(t, err)
		assert.Equal(t, HydratedFromSeed, source)
		assert.NotEmpty(t, mgr.Snapshot().Forms)
	})

	t.Run("denied later in the load", func(t *testing.T) {
		st := new(MockStore)
		mgr := state.NewManager()
		st.On("ListForms", ctx).Return([]*types.Form{}, nil)
		st.On("ListSubmissions", ctx).Return(nil, store.ErrPermissionDenied)

		source, err := Hydrate(ctx, st, mgr)
		require.NoError(t, err)
		assert.Equal(t, HydratedFromSeed, source)
	})

	t.Run("other errors are fatal", func(t *testing.T) {
		st := new(MockStore)
		mgr := state.NewManager()
		st.On("ListForms", ctx).Return(nil, errors.New("connection refused"))

		_, err := Hydrate(ctx, st, mgr)
		require.Error(t, err)
		assert.Empty(t, mgr.Snapshot().Forms)
	})
}
