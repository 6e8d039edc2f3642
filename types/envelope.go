package types

import "time"

// PackValues returns the persisted form of a submission's values: the field
// values plus the metadata envelope under MetaKey.
func PackValues(values FieldValues, meta *SubmissionMetadata) map[string]interface{} {
	out := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		if k == MetaKey {
			continue
		}
		out[k] = v
	}
	if meta != nil {
		env := map[string]interface{}{}
		putTime(env, "startTime", meta.StartTime)
		putTime(env, "submitTime", meta.SubmitTime)
		putTime(env, "lastSaved", meta.LastSaved)
		out[MetaKey] = env
	}
	return out
}

// UnpackValues splits persisted values into field values and metadata. A
// malformed envelope is dropped.
func UnpackValues(raw map[string]interface{}) (FieldValues, *SubmissionMetadata) {
	values := make(FieldValues, len(raw))
	var meta *SubmissionMetadata
	for k, v := range raw {
		if k != MetaKey {
			values[k] = v
			continue
		}
		env, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		meta = &SubmissionMetadata{
			StartTime:  getTime(env, "startTime"),
			SubmitTime: getTime(env, "submitTime"),
			LastSaved:  getTime(env, "lastSaved"),
		}
	}
	return values, meta
}

func putTime(env map[string]interface{}, key string, t *time.Time) {
	if t != nil {
		env[key] = t.UTC().Format(time.RFC3339Nano)
	}
}

func getTime(env map[string]interface{}, key string) *time.Time {
	s, ok := env[key].(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
