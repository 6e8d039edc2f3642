package form

import (
	"context"
	"fmt"
	"sort"

	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/internal/store/seed"
	"github.com/NomadCrew/formflow-backend/logger"
)

// HydrationSource says where the startup state came from.
type HydrationSource string

const (
	HydratedFromStore HydrationSource = "store"
	HydratedFromSeed  HydrationSource = "seed"
)

// Hydrate loads forms, submissions and audit entries from the store into
// mgr. When the store refuses access the embedded seed data is loaded
// instead; any other failure is returned.
func Hydrate(ctx context.Context, st store.Store, mgr *state.Manager) (HydrationSource, error) {
	log := logger.GetLogger()

	cmd, err := loadFromStore(ctx, st)
	if err != nil {
		if !store.IsPermissionDenied(err) {
			return "", err
		}
		log.Warnw("Store denied access during hydration, loading seed data", "error", err)
		data, seedErr := seed.Load()
		if seedErr != nil {
			return "", fmt.Errorf("failed to load seed data: %w", seedErr)
		}
		mgr.Dispatch(state.Hydrated{Forms: data.Forms, Submissions: data.Submissions, AuditLogs: data.AuditLogs})
		log.Infow("Hydrated from seed data", "forms", len(data.Forms), "submissions", len(data.Submissions))
		return HydratedFromSeed, nil
	}

	mgr.Dispatch(cmd)
	log.Infow("Hydrated from store", "forms", len(cmd.Forms), "submissions", len(cmd.Submissions), "auditLogs", len(cmd.AuditLogs))
	return HydratedFromStore, nil
}

func loadFromStore(ctx context.Context, st store.Store) (state.Hydrated, error) {
	forms, err := st.ListForms(ctx)
	if err != nil {
		return state.Hydrated{}, fmt.Errorf("load forms: %w", err)
	}
	subs, err := st.ListSubmissions(ctx)
	if err != nil {
		return state.Hydrated{}, fmt.Errorf("load submissions: %w", err)
	}
	logs, err := st.ListAuditLogs(ctx)
	if err != nil {
		return state.Hydrated{}, fmt.Errorf("load audit logs: %w", err)
	}

	sort.SliceStable(forms, func(i, j int) bool { return forms[i].CreatedAt.After(forms[j].CreatedAt) })
	return state.Hydrated{Forms: forms, Submissions: subs, AuditLogs: logs}, nil
}
