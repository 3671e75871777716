package a2a

/*
Artifact is a server-produced output attached to a task.  Artifacts carry a
stable identifier and a monotonically increasing version; replacing an
artifact's content bumps its version.
*/
type Artifact struct {
	ID          string         `json:"id"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Version     int            `json:"version,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewTextArtifact(id string, name string, text string) Artifact {
	return Artifact{
		ID:   id,
		Name: &name,
		Parts: []Part{
			{Type: PartTypeText, Text: text},
		},
		Version: 1,
	}
}

func NewFileArtifact(id string, name string, mimeType string, data string) Artifact {
	return Artifact{
		ID:   id,
		Name: &name,
		Parts: []Part{
			{
				Type: PartTypeFile,
				File: &FilePart{
					Name:     &name,
					MimeType: &mimeType,
					Data:     data,
				},
			},
		},
		Version: 1,
	}
}

// Validate reports whether the artifact is usable on the wire.
func (artifact *Artifact) Validate() error {
	if artifact.ID == "" {
		return ErrMissingField("id")
	}
	return nil
}
