package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.json
var localeFS embed.FS

// DefaultLanguage is used until Init is called with the configured language.
const DefaultLanguage = "ru"

var (
	bundle          *i18n.Bundle
	defaultLanguage = language.Russian
)

// Init loads the embedded message files. An unparsable language code falls
// back to Russian.
func Init(defaultLangCode string) error {
	tag, err := language.Parse(defaultLangCode)
	if err != nil {
		log.Printf("WARN: Failed to parse default language code '%s': %v. Falling back to %s.", defaultLangCode, err, DefaultLanguage)
		tag = language.Russian
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locales: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if _, err := b.LoadMessageFileFS(localeFS, e.Name()); err != nil {
			return fmt.Errorf("failed to load message file '%s': %w", e.Name(), err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no message files found")
	}

	bundle = b
	defaultLanguage = tag
	log.Printf("i18n bundle initialized with %d file(s). Default language: %s", loaded, tag)
	return nil
}

// GetDefaultLanguageTag returns the configured default language tag.
func GetDefaultLanguageTag() language.Tag {
	return defaultLanguage
}

// NewLocalizer creates a localizer for the given language preferences,
// falling back to the default language.
func NewLocalizer(langPrefs ...string) *i18n.Localizer {
	if bundle == nil {
		log.Panicln("Attempted to create localizer before i18n bundle initialization.")
	}
	prefs := make([]string, 0, len(langPrefs)+1)
	for _, p := range langPrefs {
		if p != "" {
			prefs = append(prefs, p)
		}
	}
	prefs = append(prefs, defaultLanguage.String())
	return i18n.NewLocalizer(bundle, prefs...)
}

// GetMessage retrieves and formats a message by its ID using the provided localizer.
// templateData: Optional map for template variables (e.g., map[string]interface{}{"Name": "User"}).
// pluralCount: Optional pointer to an int for pluralization rules.
func GetMessage(localizer *i18n.Localizer, msgID string, templateData map[string]interface{}, pluralCount *int) string {
	config := &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData,
	}
	if pluralCount != nil {
		config.PluralCount = *pluralCount
	}

	msg, err := localizer.Localize(config)
	if err == nil {
		return msg
	}
	log.Printf("ERROR: Failed to localize message ID '%s': %v. Falling back to %s.", msgID, err, defaultLanguage)

	fallback, fallbackErr := i18n.NewLocalizer(bundle, defaultLanguage.String()).Localize(config)
	if fallbackErr == nil {
		return fallback
	}
	log.Printf("ERROR: Failed to localize message ID '%s' in %s as well. Returning ID.", msgID, defaultLanguage)
	return msgID
}

// Plural is GetMessage with a plural count that is also exposed to the
// template as .Count.
func Plural(localizer *i18n.Localizer, msgID string, count int) string {
	return GetMessage(localizer, msgID, map[string]interface{}{"Count": count}, &count)
}
