// Package i18n holds every user-facing string of the bot. Keys are the English
// texts; Spanish is the default language.
package i18n

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	MsgNotInVoice      = "❌ You must be in a voice channel first."
	MsgInvalidURL      = "❌ Invalid YouTube URL."
	MsgPlaybackFailed  = "❌ Error playing audio. Try another link."
	MsgRequestFailed   = "❌ An error occurred while processing your request."
	MsgGuildOnly       = "❌ This command only works inside a server."
	MsgNowPlaying      = "🎵 Now Playing"
	MsgPlayDescription = "Plays music from YouTube"
	MsgURLDescription  = "YouTube URL"
)

var spanish = map[string]string{
	MsgNotInVoice:      "❌ Debes estar en un canal de voz primero.",
	MsgInvalidURL:      "❌ URL de YouTube no válida.",
	MsgPlaybackFailed:  "❌ Error al reproducir el audio. Intenta con otro enlace.",
	MsgRequestFailed:   "❌ Ocurrió un error al procesar tu solicitud.",
	MsgGuildOnly:       "❌ Este comando solo funciona dentro de un servidor.",
	MsgNowPlaying:      "🎵 Reproduciendo ahora",
	MsgPlayDescription: "Reproduce música desde YouTube",
	MsgURLDescription:  "URL de YouTube",
}

var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

func init() {
	for key, text := range spanish {
		_ = message.SetString(language.Spanish, key, text)
	}
}

// Translator resolves message keys for one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a translator for lang ("es", "en", "es-ES", ...). Unsupported
// values fall back to Spanish.
func New(lang string) *Translator {
	tag := match(lang, language.Spanish)
	return &Translator{tag: tag, printer: message.NewPrinter(tag)}
}

// T returns the text for key in the translator's language.
func (t *Translator) T(key string) string {
	return t.printer.Sprintf(key)
}

// Language returns the base language code ("es" or "en").
func (t *Translator) Language() string {
	base, _ := t.tag.Base()
	return base.String()
}

// Catalog picks translators per interaction locale.
type Catalog struct {
	fallback *Translator
}

// NewCatalog returns a catalog whose fallback language is lang.
func NewCatalog(lang string) *Catalog {
	return &Catalog{fallback: New(lang)}
}

// For returns the translator for a Discord user locale, or the fallback when
// the locale is empty or unsupported.
func (c *Catalog) For(locale discordgo.Locale) *Translator {
	if locale == "" {
		return c.fallback
	}
	_, index, confidence := matcher.Match(language.Make(string(locale)))
	if confidence < language.High {
		return c.fallback
	}
	tag := supported[index]
	return &Translator{tag: tag, printer: message.NewPrinter(tag)}
}

// Localizations returns key translated into every supported Discord locale,
// for command and option descriptions.
func Localizations(key string) map[discordgo.Locale]string {
	es := New("es").T(key)
	return map[discordgo.Locale]string{
		discordgo.SpanishES:    es,
		discordgo.SpanishLATAM: es,
		discordgo.EnglishUS:    key,
		discordgo.EnglishGB:    key,
	}
}

func match(lang string, fallback language.Tag) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return fallback
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fallback
	}
	_, index, confidence := matcher.Match(tag)
	if confidence < language.High {
		return fallback
	}
	return supported[index]
}
