package snapshot

import (
	"errors"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// DeviceGroupKey is the reserved key under which device records are stored
// in the persisted report document. No template may use this name.
const DeviceGroupKey = "_device"

// Report is a named snapshot of interrelated entities and the unit of
// transfer between organizations. Entities are grouped by template name in
// the order they were exported; device records, a specialization with a
// fixed platform template, are kept apart from the generic entities.
//
// A report is self-contained except for references to templates
// deliberately excluded by policy; those surface as
// UnresolvedReferenceWarning during filter and import, never silently.
type Report struct {
	Name      string
	CreatedAt time.Time
	Entities  map[TemplateName]Entities
	Devices   Entities
}

// BuildReport is a factory method for Report.
// Returns an error if the name is empty or a template group uses the
// reserved device key.
func BuildReport(name string, createdAt time.Time, entities map[TemplateName]Entities, devices Entities) (Report, error) {
	if name == "" {
		return Report{}, ErrEmptyReportName
	}

	if _, taken := entities[DeviceGroupKey]; taken {
		return Report{}, errors.New("template group must not use the reserved device key")
	}

	return Report{
		Name:      name,
		CreatedAt: createdAt,
		Entities:  entities,
		Devices:   devices,
	}, nil
}

// Templates returns the sorted template names present in the report.
func (r Report) Templates() []TemplateName {
	names := make([]TemplateName, 0, len(r.Entities))
	for name := range r.Entities {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// EntityCount returns the number of generic entities across all templates,
// excluding devices.
func (r Report) EntityCount() int {
	count := 0
	for _, group := range r.Entities {
		count += len(group)
	}

	return count
}

// IsEmpty reports whether the report holds no entities and no devices.
func (r Report) IsEmpty() bool {
	return r.EntityCount() == 0 && len(r.Devices) == 0
}

// Clone returns a deep copy of the report.
func (r Report) Clone() Report {
	clone := r

	if r.Entities != nil {
		clone.Entities = make(map[TemplateName]Entities, len(r.Entities))
		for templateName, group := range r.Entities {
			clone.Entities[templateName] = cloneEntities(group)
		}
	}
	clone.Devices = cloneEntities(r.Devices)

	return clone
}

func cloneEntities(group Entities) Entities {
	if group == nil {
		return nil
	}

	out := make(Entities, len(group))
	for i, entity := range group {
		out[i] = entity.Clone()
	}

	return out
}

// reportDocument is the persisted form of a Report: a named document keyed
// by template name, each value an ordered sequence of entity records, with
// devices stored under the reserved DeviceGroupKey. This document is the
// portable artifact exchanged between export and import and must round-trip
// losslessly through any storage medium.
type reportDocument struct {
	Name      string                    `json:"name"`
	CreatedAt time.Time                 `json:"createdAt"`
	Groups    map[TemplateName][]Entity `json:"entitiesByTemplate"`
}

var reportJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalDocument serializes the report into its portable document form.
func (r Report) MarshalDocument() ([]byte, error) {
	doc := reportDocument{
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
		Groups:    make(map[TemplateName][]Entity, len(r.Entities)+1),
	}

	for templateName, group := range r.Entities {
		doc.Groups[templateName] = group
	}
	if len(r.Devices) > 0 {
		doc.Groups[DeviceGroupKey] = r.Devices
	}

	return reportJSON.Marshal(doc)
}

// UnmarshalReport parses a portable report document back into a Report.
func UnmarshalReport(data []byte) (Report, error) {
	if !reportJSON.Valid(data) {
		return Report{}, ErrInvalidReportJSON
	}

	var doc reportDocument
	if err := reportJSON.Unmarshal(data, &doc); err != nil {
		return Report{}, errors.Join(ErrInvalidReportJSON, err)
	}

	if doc.Name == "" {
		return Report{}, ErrEmptyReportName
	}

	report := Report{
		Name:      doc.Name,
		CreatedAt: doc.CreatedAt,
		Entities:  make(map[TemplateName]Entities, len(doc.Groups)),
	}

	for templateName, group := range doc.Groups {
		if templateName == DeviceGroupKey {
			report.Devices = group
			continue
		}
		report.Entities[templateName] = group
	}

	return report, nil
}

// ReassignOwnership prepares a report exported from one organization for
// import into another: only entities owned by the source organization are
// kept, and their ownership is rewritten to the destination. Device records
// are dropped, reported through a DevicesDroppedWarning, because device
// identity does not carry across organizations.
func ReassignOwnership(report Report, srcOrg OrgID, dstOrg OrgID) (Report, []Warning) {
	out := Report{
		Name:      report.Name,
		CreatedAt: report.CreatedAt,
		Entities:  make(map[TemplateName]Entities, len(report.Entities)),
	}

	for templateName, group := range report.Entities {
		kept := make(Entities, 0, len(group))
		for _, entity := range group {
			if entity.OwnerOrg != srcOrg {
				continue
			}
			clone := entity.Clone()
			clone.OwnerOrg = dstOrg
			kept = append(kept, clone)
		}
		if len(kept) > 0 {
			out.Entities[templateName] = kept
		}
	}

	var warnings []Warning
	if len(report.Devices) > 0 {
		warnings = append(warnings, DevicesDroppedWarning{Count: len(report.Devices)})
	}

	return out, warnings
}
