package draft

// State is the UI-facing summary of a Draft
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateDuplicate  State = "duplicate"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

const (
	HintIdle          = "upload an image to begin"
	HintProcessing    = "recognizing…"
	HintSubmitting    = "submitting…"
	HintDuplicate     = "this listing already exists"
	HintReady         = "ready to submit"
	HintCodeNotFound  = "no order link code found in the image"
	HintGenericFailed = "recognition failed, please try again"
)

type Readiness struct {
	State     State  `json:"state" yaml:"state"`
	Hint      string `json:"hint" yaml:"hint"`
	CanSubmit bool   `json:"can_submit" yaml:"can_submit"`
}

// Derive maps a draft to its readiness. Rules are checked in order and the
// last one matches everything, so every draft has exactly one state.
func Derive(d Draft) Readiness {
	r := Readiness{CanSubmit: canSubmit(d)}

	switch {
	case d.ImageRef == "":
		r.State, r.Hint = StateIdle, HintIdle
	case d.CodeStatus == CodeScanning || d.ExtractionInFlight || d.Duplicate.Checking:
		r.State, r.Hint = StateProcessing, HintProcessing
	case d.Submitting:
		r.State, r.Hint = StateProcessing, HintSubmitting
	case d.Duplicate.MatchedListingID != "":
		r.State, r.Hint = StateDuplicate, HintDuplicate
	case d.CodeStatus == CodeSuccess && extractionOK(d):
		r.State, r.Hint = StateSuccess, HintReady
	default:
		r.State, r.Hint = StateFailed, failureHint(d)
	}

	return r
}

func extractionOK(d Draft) bool {
	return d.Extraction != nil && d.Extraction.Title != "" && d.ExtractionError == ""
}

func canSubmit(d Draft) bool {
	return d.ImageRef != "" &&
		d.CodeStatus == CodeSuccess &&
		d.CodeValue != "" &&
		extractionOK(d) &&
		d.Duplicate.MatchedListingID == "" &&
		!d.ExtractionInFlight &&
		!d.Duplicate.Checking &&
		!d.Submitting
}

func failureHint(d Draft) string {
	switch {
	case d.ExtractionError != "":
		return d.ExtractionError
	case d.CodeStatus == CodeFailed:
		return HintCodeNotFound
	default:
		return HintGenericFailed
	}
}
