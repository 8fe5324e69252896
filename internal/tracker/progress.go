package tracker

// Progress is the persisted high-water mark for the last tracked page.
// The zero value means nothing has been tracked.
type Progress struct {
	ScrollPercent    int    `json:"scrollPercent"`
	DocumentLocation string `json:"documentLocation"`
}

// Tracked reports whether the record carries a usable measurement: a
// positive percentage and a non-empty location.
func (p Progress) Tracked() bool {
	return p.ScrollPercent > 0 && p.DocumentLocation != ""
}
