package gps

// Display describes how a client renders a Status.
type Display struct {
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	LabelKey string `json:"labelKey"`
	Warning  bool   `json:"warning"`
}

var presentations = map[Status]Display{
	StatusExcellent:    {Color: "success", Icon: "gps_fixed", LabelKey: "gps.excellent"},
	StatusVerified:     {Color: "success", Icon: "gps_fixed", LabelKey: "gps.verified"},
	StatusImproving:    {Color: "info", Icon: "gps_not_fixed", LabelKey: "gps.improving"},
	StatusLowAccuracy:  {Color: "warning", Icon: "gps_not_fixed", LabelKey: "gps.low_accuracy", Warning: true},
	StatusOutOfRange:   {Color: "error", Icon: "wrong_location", LabelKey: "gps.out_of_range"},
	StatusMockLocation: {Color: "error", Icon: "security", LabelKey: "gps.mock_location"},
	StatusDisabled:     {Color: "neutral", Icon: "location_disabled", LabelKey: "gps.disabled"},
	StatusFailed:       {Color: "error", Icon: "gps_off", LabelKey: "gps.failed"},
	StatusPending:      {Color: "info", Icon: "location_searching", LabelKey: "gps.pending"},
}

// Presentation returns the display entry for s; unknown statuses render as failed.
func Presentation(s Status) Display {
	if d, ok := presentations[s]; ok {
		return d
	}
	return presentations[StatusFailed]
}
