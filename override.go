package model

// Override interfaces let a model take over a Send step. When the model
// built by a Processor's factory implements one of these interfaces, the
// Processor calls it instead of applying the schema's masks or redactions.

// Maskable replaces schema masking on Send.
type Maskable interface {
	// Mask transforms view in place. The view is a fresh projection, so
	// mutations never reach the model. The maskers map holds every masker
	// registered with the Processor.
	Mask(view map[string]any, maskers map[MaskType]Masker) error
}

// Redactable replaces schema redaction on Send.
type Redactable interface {
	// Redact transforms view in place. It runs after masking.
	Redact(view map[string]any) error
}
