package address

import (
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/roach88/dhd/internal/alert"
)

// MaxFieldLength caps the characters a Field accepts.
const MaxFieldLength = 25

// Key names understood by Field.Keydown besides single characters.
const (
	KeyBackspace = "Backspace"
	KeyEnter     = "Enter"
)

// Field is the state of the free-text address input.
//
// Edits accumulate in a working value. On blur a changed value is either
// saved or rejected: a rejected value raises an input alert and the field
// keeps focus so the user can correct it.
type Field struct {
	Label    string
	Editable bool

	validator *Validator
	alerts    alert.Raiser
	onSave    func(string)

	mu       sync.Mutex
	editMode bool
	last     string
	working  string
}

// NewField creates a field. onSave may be nil.
func NewField(label string, v *Validator, alerts alert.Raiser, onSave func(string)) *Field {
	if v == nil {
		v = MustValidator(DefaultPattern, 1, 0)
	}
	return &Field{Label: label, Editable: true, validator: v, alerts: alerts, onSave: onSave}
}

// SetValue replaces both the saved and the working value.
func (f *Field) SetValue(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = v
	f.working = v
}

// Value returns the working value.
func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.working
}

// Editing reports whether the field has focus.
func (f *Field) Editing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editMode
}

// Focus enters edit mode.
func (f *Field) Focus() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editMode = true
}

// Keydown applies one key press: a single character is appended while
// under MaxFieldLength, Backspace deletes the last character and Enter
// blurs.
func (f *Field) Keydown(key string) {
	f.mu.Lock()
	switch {
	case utf8.RuneCountInString(key) == 1 && utf8.RuneCountInString(f.working) < MaxFieldLength:
		f.working += key
	case key == KeyBackspace && f.working != "":
		_, size := utf8.DecodeLastRuneInString(f.working)
		f.working = f.working[:len(f.working)-size]
	case key == KeyEnter:
		f.mu.Unlock()
		f.Blur()
		return
	}
	f.mu.Unlock()
}

// Type feeds every character of s through Keydown.
func (f *Field) Type(s string) {
	for _, r := range s {
		f.Keydown(string(r))
	}
}

// Blur leaves edit mode and commits a changed value. Returns false when the
// value was rejected.
func (f *Field) Blur() bool {
	f.mu.Lock()
	f.editMode = false
	if f.working == f.last {
		f.mu.Unlock()
		return true
	}
	value := f.working
	f.mu.Unlock()

	if _, err := f.validator.Validate(value); err != nil {
		if f.alerts != nil {
			f.alerts.Raise(alert.InvalidInput())
		}
		f.Focus()
		return false
	}

	f.mu.Lock()
	f.last = value
	f.mu.Unlock()

	if f.onSave != nil {
		f.onSave(value)
	}
	return true
}

func itoa(i int) string { return strconv.Itoa(i) }
