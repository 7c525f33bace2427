package errors

// Warning is a soft, non-fatal problem recorded while processing a batch.
// The offending record was dropped or a fallback was taken; processing
// continued with everything else.
type Warning struct {
	Code    Code   `json:"code"`
	Subject string `json:"subject,omitempty"` // id of the record involved, if any
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Subject != "" {
		return string(w.Code) + " [" + w.Subject + "]: " + w.Message
	}
	return string(w.Code) + ": " + w.Message
}

// Warnings accumulates soft warnings in the order they were raised.
// The zero value is ready to use.
type Warnings []Warning

// Add appends a warning with a formatted message.
func (ws *Warnings) Add(code Code, subject, format string, args ...any) {
	*ws = append(*ws, Warning{Code: code, Subject: subject, Message: New(code, format, args...).Message})
}

// Extend appends all warnings from other.
func (ws *Warnings) Extend(other Warnings) {
	*ws = append(*ws, other...)
}

// Has reports whether any warning carries code.
func (ws Warnings) Has(code Code) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Count returns the number of warnings with code.
func (ws Warnings) Count(code Code) int {
	n := 0
	for _, w := range ws {
		if w.Code == code {
			n++
		}
	}
	return n
}
