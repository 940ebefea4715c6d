package i18n

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestTranslatorDefaultsToSpanish(t *testing.T) {
	for _, lang := range []string{"", "es", "es-ES", "xx", "not a tag"} {
		tr := New(lang)
		assert.Equal(t, "es", tr.Language(), "lang=%q", lang)
		assert.Equal(t, "❌ URL de YouTube no válida.", tr.T(MsgInvalidURL))
	}
}

func TestTranslatorEnglish(t *testing.T) {
	tr := New("en")
	assert.Equal(t, "en", tr.Language())
	assert.Equal(t, "❌ You must be in a voice channel first.", tr.T(MsgNotInVoice))
	assert.Equal(t, "🎵 Now Playing", tr.T(MsgNowPlaying))
}

func TestCatalogFor(t *testing.T) {
	c := NewCatalog("es")

	assert.Equal(t, "❌ Error al reproducir el audio. Intenta con otro enlace.", c.For(discordgo.SpanishLATAM).T(MsgPlaybackFailed))
	assert.Equal(t, "❌ Error playing audio. Try another link.", c.For(discordgo.EnglishUS).T(MsgPlaybackFailed))
	assert.Same(t, c.fallback, c.For(""))
	assert.Same(t, c.fallback, c.For(discordgo.Japanese))
}

func TestCatalogEnglishFallback(t *testing.T) {
	c := NewCatalog("en")
	assert.Equal(t, "❌ An error occurred while processing your request.", c.For(discordgo.Korean).T(MsgRequestFailed))
}

func TestEveryKeyHasSpanish(t *testing.T) {
	keys := []string{
		MsgNotInVoice, MsgInvalidURL, MsgPlaybackFailed, MsgRequestFailed,
		MsgGuildOnly, MsgNowPlaying, MsgPlayDescription, MsgURLDescription,
	}
	es := New("es")
	for _, k := range keys {
		assert.NotEqual(t, k, es.T(k), "missing Spanish text for %q", k)
	}
}

func TestLocalizations(t *testing.T) {
	l := Localizations(MsgPlayDescription)
	assert.Equal(t, "Reproduce música desde YouTube", l[discordgo.SpanishES])
	assert.Equal(t, "Plays music from YouTube", l[discordgo.EnglishUS])
}
