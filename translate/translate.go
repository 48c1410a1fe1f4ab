// Package translate localises the user-facing chip8 messages.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

const DEFAULT_LANGUAGE = "en-US"

var printer = newPrinter()

// newPrinter matches the user's locales.
func newPrinter() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("chip8: locale: %v", err)
	}

	return printerFor(locales...)
}

func printerFor(locales ...string) *message.Printer {
	if len(locales) == 0 {
		locales = []string{DEFAULT_LANGUAGE}
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
}

// SetLanguage overrides the user's locales for messages formatted from
// now on. Must not be called concurrently with From.
func SetLanguage(locales ...string) {
	printer = printerFor(locales...)
}

// From formats an en-US Sprintf() style key in the user's language.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
