package models

// PowerState mirrors the on/off flag of the remote display entity.
type PowerState string

const (
	PowerOn  PowerState = "ON"
	PowerOff PowerState = "OFF"
)

// PresentationState is the complete set of display attributes owned by
// the reconciliation engine. The struct is comparable; state diffing
// uses plain equality.
type PresentationState struct {
	Title             string
	SubtitlePrimary   string
	SubtitleSecondary string
	ImageRef          string
	Power             PowerState
}

// Attributes renders the state as the attribute map pushed to the host.
func (p PresentationState) Attributes() map[string]string {
	return map[string]string{
		"state":              string(p.Power),
		"title":              p.Title,
		"subtitle_primary":   p.SubtitlePrimary,
		"subtitle_secondary": p.SubtitleSecondary,
		"image_url":          p.ImageRef,
	}
}
