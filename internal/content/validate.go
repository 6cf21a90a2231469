package content

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field names an editable field of a snapshot.
type Field string

const (
	FieldName     Field = "name"
	FieldText     Field = "text"
	FieldTags     Field = "tags"
	FieldImage    Field = "image"
	FieldSettings Field = "settings"
	FieldComment  Field = "comment"
	FieldPrompt   Field = "prompt"
)

// Reason is the kind of validation failure.
type Reason string

const (
	ReasonEmpty    Reason = "empty"
	ReasonTooShort Reason = "too_short"
	ReasonTooLong  Reason = "too_long"
	ReasonTooMany  Reason = "too_many"
	ReasonTooLarge Reason = "too_large"
	ReasonNotImage Reason = "not_image"
	ReasonInvalid  Reason = "invalid"
)

// ValidationError is returned for user input that was rejected. The working
// snapshot is never modified when it is returned.
type ValidationError struct {
	Field  Field
	Reason Reason
	Limit  int
}

func (e *ValidationError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("invalid %s: %s (limit %d)", e.Field, e.Reason, e.Limit)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Rules are the per-kind input limits. A zero limit disables its check.
type Rules struct {
	NameMax    int  `json:"name_max"`
	TextMin    int  `json:"text_min"`
	TextMax    int  `json:"text_max"`
	TagsMax    int  `json:"tags_max"`
	TextNeeded bool `json:"text_needed"`
}

var (
	PublicationRules = Rules{NameMax: 200, TextMin: 50, TextMax: 4000, TagsMax: 10, TextNeeded: true}
	VideoCutRules    = Rules{NameMax: 100, TextMax: 2200, TagsMax: 15, TextNeeded: true}
	// GeneratedRules applies while a freshly generated publication is
	// edited before it is created on the backend.
	GeneratedRules = Rules{NameMax: 200, TextMin: 1, TextMax: 4000, TagsMax: 10, TextNeeded: true}
)

// RulesFor returns the default rules for a kind.
func RulesFor(kind Kind) Rules {
	if kind == KindVideoCut {
		return VideoCutRules
	}
	return PublicationRules
}

const (
	CommentMin    = 10
	CommentMax    = 500
	PromptMin     = 5
	PromptMax     = 500
	MaxImageBytes = 10 << 20
	ReferenceMin  = 10
	ReferenceMax  = 2000
)

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// ValidateName trims and checks a title.
func (r Rules) ValidateName(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", &ValidationError{Field: FieldName, Reason: ReasonEmpty}
	}
	if r.NameMax > 0 && runeLen(v) > r.NameMax {
		return "", &ValidationError{Field: FieldName, Reason: ReasonTooLong, Limit: r.NameMax}
	}
	return v, nil
}

// ValidateText trims and checks a body text or description.
func (r Rules) ValidateText(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" && r.TextNeeded {
		return "", &ValidationError{Field: FieldText, Reason: ReasonEmpty}
	}
	n := runeLen(v)
	if r.TextMin > 0 && n < r.TextMin {
		return "", &ValidationError{Field: FieldText, Reason: ReasonTooShort, Limit: r.TextMin}
	}
	if r.TextMax > 0 && n > r.TextMax {
		return "", &ValidationError{Field: FieldText, Reason: ReasonTooLong, Limit: r.TextMax}
	}
	return v, nil
}

// ValidateTags parses comma separated tags and checks the count.
// An empty input clears the tags.
func (r Rules) ValidateTags(raw string) ([]string, error) {
	tags := ParseTags(raw)
	if r.TagsMax > 0 && len(tags) > r.TagsMax {
		return nil, &ValidationError{Field: FieldTags, Reason: ReasonTooMany, Limit: r.TagsMax}
	}
	return tags, nil
}

// ParseTags splits on commas, trims entries and drops empty ones.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ValidateComment checks a rejection comment.
func ValidateComment(raw string) (string, error) {
	return validateRange(FieldComment, raw, CommentMin, CommentMax)
}

// ValidatePrompt checks a regenerate or image prompt.
func ValidatePrompt(raw string) (string, error) {
	return validateRange(FieldPrompt, raw, PromptMin, PromptMax)
}

// ValidateReference checks the source text for publication generation.
func ValidateReference(raw string) (string, error) {
	return validateRange(FieldText, raw, ReferenceMin, ReferenceMax)
}

// ValidateImageUpload checks the size and mime type of an uploaded image.
func ValidateImageUpload(size int64, mimeType string) error {
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return &ValidationError{Field: FieldImage, Reason: ReasonNotImage}
	}
	if size > MaxImageBytes {
		return &ValidationError{Field: FieldImage, Reason: ReasonTooLarge, Limit: MaxImageBytes}
	}
	return nil
}

func validateRange(field Field, raw string, minLen, maxLen int) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", &ValidationError{Field: field, Reason: ReasonEmpty}
	}
	n := runeLen(v)
	if n < minLen {
		return "", &ValidationError{Field: field, Reason: ReasonTooShort, Limit: minLen}
	}
	if n > maxLen {
		return "", &ValidationError{Field: field, Reason: ReasonTooLong, Limit: maxLen}
	}
	return v, nil
}
