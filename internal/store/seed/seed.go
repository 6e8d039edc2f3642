// Package seed provides the embedded placeholder data used when the remote
// store refuses reads.
package seed

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/NomadCrew/formflow-backend/types"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type document struct {
	Forms       []formDoc       `yaml:"forms"`
	Submissions []submissionDoc `yaml:"submissions"`
	AuditLogs   []auditDoc      `yaml:"auditLogs"`
}

type stampsDoc struct {
	ApprovedBy *string    `yaml:"approvedBy"`
	ApprovedAt *time.Time `yaml:"approvedAt"`
	RejectedBy *string    `yaml:"rejectedBy"`
	RejectedAt *time.Time `yaml:"rejectedAt"`
}

type formDoc struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Status      types.FormStatus  `yaml:"status"`
	Slug        string            `yaml:"slug"`
	CreatedBy   string            `yaml:"createdBy"`
	CreatedAt   time.Time         `yaml:"createdAt"`
	UpdatedAt   time.Time         `yaml:"updatedAt"`
	Fields      []types.FormField `yaml:"fields"`
	stampsDoc   `yaml:",inline"`
}

type submissionDoc struct {
	ID        string                 `yaml:"id"`
	FormID    string                 `yaml:"formId"`
	UserID    string                 `yaml:"userId"`
	Status    types.SubmissionStatus `yaml:"status"`
	Values    map[string]interface{} `yaml:"values"`
	CreatedAt time.Time              `yaml:"createdAt"`
	UpdatedAt time.Time              `yaml:"updatedAt"`
	stampsDoc `yaml:",inline"`
}

type auditDoc struct {
	ID            string            `yaml:"id"`
	EntityID      string            `yaml:"entityId"`
	EntityType    types.EntityType  `yaml:"entityType"`
	UserID        string            `yaml:"userId"`
	Action        types.AuditAction `yaml:"action"`
	PreviousValue *string           `yaml:"previousValue"`
	NewValue      string            `yaml:"newValue"`
	Timestamp     time.Time         `yaml:"timestamp"`
}

func (s stampsDoc) toStamps() types.ReviewStamps {
	return types.ReviewStamps{ApprovedBy: s.ApprovedBy, ApprovedAt: s.ApprovedAt, RejectedBy: s.RejectedBy, RejectedAt: s.RejectedAt}
}

// Data is a full set of collections.
type Data struct {
	Forms       []*types.Form
	Submissions []*types.Submission
	AuditLogs   []types.AuditLog
}

// Load parses the embedded seed data.
func Load() (*Data, error) {
	return Parse(seedYAML)
}

// Parse decodes seed YAML. Forms come back newest first and every
// submissionCount is recomputed from the submissions.
func Parse(raw []byte) (*Data, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	counts := map[string]int{}
	data := &Data{}
	for _, sd := range doc.Submissions {
		values, meta := types.UnpackValues(sd.Values)
		data.Submissions = append(data.Submissions, &types.Submission{
			ID:           sd.ID,
			FormID:       sd.FormID,
			UserID:       sd.UserID,
			Status:       sd.Status,
			Values:       values,
			Metadata:     meta,
			CreatedAt:    sd.CreatedAt,
			UpdatedAt:    sd.UpdatedAt,
			ReviewStamps: sd.toStamps(),
		})
		counts[sd.FormID]++
	}

	for _, fd := range doc.Forms {
		if !fd.Status.IsValid() {
			return nil, fmt.Errorf("seed form %s: invalid status %q", fd.ID, fd.Status)
		}
		fields := fd.Fields
		if fields == nil {
			fields = []types.FormField{}
		}
		data.Forms = append(data.Forms, &types.Form{
			ID:              fd.ID,
			Title:           fd.Title,
			Description:     fd.Description,
			Fields:          fields,
			Status:          fd.Status,
			Slug:            fd.Slug,
			CreatedBy:       fd.CreatedBy,
			CreatedAt:       fd.CreatedAt,
			UpdatedAt:       fd.UpdatedAt,
			ReviewStamps:    fd.toStamps(),
			SubmissionCount: counts[fd.ID],
		})
	}
	sort.SliceStable(data.Forms, func(i, j int) bool {
		return data.Forms[i].CreatedAt.After(data.Forms[j].CreatedAt)
	})

	for _, ad := range doc.AuditLogs {
		data.AuditLogs = append(data.AuditLogs, types.AuditLog{
			ID:            ad.ID,
			EntityID:      ad.EntityID,
			EntityType:    ad.EntityType,
			UserID:        ad.UserID,
			Action:        ad.Action,
			PreviousValue: ad.PreviousValue,
			NewValue:      ad.NewValue,
			Timestamp:     ad.Timestamp,
		})
	}
	return data, nil
}
