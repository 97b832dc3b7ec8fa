package snapshot

// Canonical template names of the Bio-T configuration schema.
const (
	TemplateSensor               TemplateName = "sensor"
	TemplatePatch                TemplateName = "patch"
	TemplateMontageConfiguration TemplateName = "montage_configuration"
	TemplateChannel              TemplateName = "channel"
	TemplateCalibrationStep      TemplateName = "calibration_step"
)

// Field names with declared cross-template meaning in the canonical schema.
const (
	fieldPatch             = "patch"
	fieldMontage           = "montage_configuration"
	fieldMontageCalibrated = "montage_calibraterd" // sic, the platform schema carries the typo
	fieldDevice            = "device"
	fieldMontageImage      = "montage_image"
	fieldFullPatchJSON     = "full_patch_json"
)

// DefaultConfigurationTemplates returns the complete canonical set of
// configuration template names, in post order.
func DefaultConfigurationTemplates() []TemplateName {
	return []TemplateName{
		TemplateSensor,
		TemplatePatch,
		TemplateMontageConfiguration,
		TemplateCalibrationStep,
		TemplateChannel,
	}
}

// DefaultReferenceGraph returns the reference graph of the canonical
// configuration schema.
//
// Montage configurations point at the patch they are built for; channels
// and calibration steps point at their montage configuration and must
// travel with it when a subset is copied. A sensor's device binding and a
// montage's generated artifacts are bound to the owning organization and
// are stripped on import.
func DefaultReferenceGraph() ReferenceGraph {
	graph, err := BuildReferenceGraph(map[TemplateName]TemplateSpec{
		TemplateSensor: {
			NonPortableFields: []string{fieldDevice, fieldFullPatchJSON},
		},
		TemplatePatch: {
			NonPortableFields: []string{fieldFullPatchJSON},
		},
		TemplateMontageConfiguration: {
			ReferenceFields: []ReferenceField{
				{Name: fieldPatch, TargetTemplate: TemplatePatch},
			},
			NonPortableFields: []string{fieldMontageImage, fieldFullPatchJSON},
		},
		TemplateChannel: {
			ReferenceFields: []ReferenceField{
				{Name: fieldMontage, TargetTemplate: TemplateMontageConfiguration, CopyClosure: true},
			},
		},
		TemplateCalibrationStep: {
			ReferenceFields: []ReferenceField{
				{Name: fieldMontageCalibrated, TargetTemplate: TemplateMontageConfiguration, CopyClosure: true},
			},
		},
	})
	if err != nil {
		panic(err) // static configuration, must never fail to build
	}

	return graph
}

// DefaultPostOrder returns the canonical creation order of the
// configuration templates.
func DefaultPostOrder() DependencyOrder {
	order, err := BuildDependencyOrder(DefaultConfigurationTemplates()...)
	if err != nil {
		panic(err) // static configuration, must never fail to build
	}

	return order
}
