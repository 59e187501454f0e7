package certificate

// Presentation is what a client needs to render a validity badge.
type Presentation struct {
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	LabelKey string `json:"labelKey"`
}

var badges = map[ValidityState]Presentation{
	StateValid:        {Color: "success", Icon: "verified", LabelKey: "certificate.valid"},
	StateExpiringSoon: {Color: "warning", Icon: "schedule", LabelKey: "certificate.expiring_soon"},
	StateExpired:      {Color: "error", Icon: "error_outline", LabelKey: "certificate.expired"},
}

// Badge returns the presentation for s. Unknown states render as expired.
func Badge(s ValidityState) Presentation {
	if p, ok := badges[s]; ok {
		return p
	}
	return badges[StateExpired]
}
