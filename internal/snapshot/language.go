package snapshot

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// ResolveLanguageTag derives the fenced-code-block language identifier for a
// file: editor metadata wins, then a lexer match on the file name, then the
// bare extension, falling back to an empty tag when nothing is known.
func ResolveLanguageTag(relativePath, editorLanguage string) string {
	if editorLanguage != "" {
		return editorLanguage
	}
	matchedLexer := lexers.Match(filepath.Base(relativePath))
	if matchedLexer != nil {
		lexerConfiguration := matchedLexer.Config()
		if len(lexerConfiguration.Aliases) > 0 {
			return lexerConfiguration.Aliases[0]
		}
		return strings.ToLower(lexerConfiguration.Name)
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(relativePath), "."))
}
