package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := map[string]string{
		"Intro to Go":                   "intro-to-go",
		"  Advanced   Django REST!  ":   "advanced-django-rest",
		"C# & .NET Básico":              "c-sharp-and-net-basico",
		"C++ for Beginners":             "c-plus-plus-for-beginners",
		"Çocuk Gelişimi":                "cocuk-gelisimi",
		"Straße der Öffentlichkeit":     "strasse-der-offentlichkeit",
		"---":                           "",
		"":                              "",
		"Module 1: Variables & Types":   "module-1-variables-and-types",
	}
	for in, want := range tests {
		assert.Equal(t, want, Generate(in), in)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("intro-to-go", "Intro to Go"))
	assert.True(t, Matches("INTRO TO GO", "Intro to Go"))
	assert.True(t, Matches("Intro to Go ", "intro to go"))
	assert.False(t, Matches("intro-to-rust", "Intro to Go"))
	assert.False(t, Matches("", ""))
}
