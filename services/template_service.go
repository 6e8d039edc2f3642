package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/models/form"
	"github.com/NomadCrew/formflow-backend/types"
	"gopkg.in/yaml.v3"
)

const definitionVersion = 1

// MaxDefinitionSize bounds imported definition files.
const MaxDefinitionSize = 1 << 20

// FormDefinition is the portable form template: the editable part of a form
// without ids, status or review data.
type FormDefinition struct {
	Version         int `json:"version" yaml:"version"`
	types.FormInput `yaml:",inline"`
}

// ExportDefinition renders f as a YAML template.
func ExportDefinition(f *types.Form) ([]byte, error) {
	def := FormDefinition{
		Version: definitionVersion,
		FormInput: types.FormInput{
			Title:       f.Title,
			Description: f.Description,
			Fields:      make([]types.FormField, len(f.Fields)),
		},
	}
	for i, field := range f.Fields {
		field.ID = ""
		def.Fields[i] = field
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, fmt.Errorf("encode form definition: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode form definition: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseDefinition decodes a YAML or JSON template and validates it as form
// input. Unknown keys are rejected.
func ParseDefinition(data []byte, isJSON bool) (types.FormInput, error) {
	if len(data) > MaxDefinitionSize {
		return types.FormInput{}, apperrors.ValidationFailed("Definition file is too large", fmt.Sprintf("limit is %d bytes", MaxDefinitionSize))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return types.FormInput{}, apperrors.ValidationFailed("Definition file is empty", "")
	}

	var def FormDefinition
	var err error
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&def)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&def)
	}
	if err != nil {
		return types.FormInput{}, apperrors.ValidationFailed("Definition file could not be parsed", err.Error())
	}
	if def.Version > definitionVersion {
		return types.FormInput{}, apperrors.ValidationFailed("Unsupported definition version", fmt.Sprint(def.Version))
	}

	for i := range def.Fields {
		def.Fields[i].ID = ""
	}
	if err := form.ValidateInput(def.FormInput); err != nil {
		return types.FormInput{}, err
	}
	return def.FormInput, nil
}
