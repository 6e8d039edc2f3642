package form

import (
	"github.com/NomadCrew/formflow-backend/internal/events"
	"github.com/NomadCrew/formflow-backend/types"
)

type statusChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var newEvent = events.NewEvent

func formPayload(f *types.Form) map[string]interface{} {
	return map[string]interface{}{
		"title":  f.Title,
		"slug":   f.Slug,
		"status": f.Status,
	}
}
