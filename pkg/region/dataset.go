package region

import (
	"encoding/json"
	"maps"
	"slices"

	errs "github.com/calavorn/realmmap/pkg/errors"
)

// Region is one entry of a tier dataset.
//
// Inside a [Graph], Overlord and Subjects hold the normalised hierarchy:
// Subjects lists only regions that exist in the tier, and Overlord is the
// region whose subject list contains this one.
type Region struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Color       Color    `json:"rgb"`
	Overlord    string   `json:"overlord,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Size        int      `json:"size"`
	SubjectSize int      `json:"subject_size"`
	Description string   `json:"description,omitempty"`
	Banner      string   `json:"banner,omitempty"`
}

// DisplayName returns the name, falling back to the id.
func (r Region) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// HasSubjects reports whether the region can be drilled into.
func (r Region) HasSubjects() bool { return len(r.Subjects) > 0 }

// Dataset is the raw per-tier payload keyed by region id.
type Dataset map[string]Region

// ParseDataset decodes a tier dataset and stamps each region with its key.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDataset, err, "decode dataset")
	}
	if ds == nil {
		return nil, errs.New(errs.ErrCodeInvalidDataset, "dataset is empty")
	}
	for id, r := range ds {
		if id == "" {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "dataset contains an empty region id")
		}
		r.ID = id
		ds[id] = r
	}
	return ds, nil
}

// IDs returns the dataset's region ids in sorted order.
func (ds Dataset) IDs() []string {
	return slices.Sorted(maps.Keys(ds))
}

// declaresSubjects reports whether any region carries a subject list. A
// dataset without any is treated as overlord-only and has its subject
// lists derived.
func (ds Dataset) declaresSubjects() bool {
	for _, r := range ds {
		if len(r.Subjects) > 0 {
			return true
		}
	}
	return false
}
