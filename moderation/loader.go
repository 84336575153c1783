package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"livechat/errors"
	"log/slog"
	"path"
	"strings"
)

//go:embed censored/*.txt
var censoredFolder embed.FS

// CensoredData carries the result of the loading process including metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// LoadCensored scans dir in fsys, treating each .txt file as a language
// dictionary (e.g. "fr.txt" -> "fr") and collecting its unique, non-empty lines.
func LoadCensored(fsys fs.FS, dir string) (*CensoredData, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// Scanner handles \n vs \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	return &CensoredData{Words: words, Languages: languages}, nil
}

// NewDefaultModerator builds a moderator from the embedded dictionaries.
func NewDefaultModerator(censoredChar rune, log *slog.Logger) (*Moderator, error) {
	data, err := LoadCensored(censoredFolder, "censored")
	if err != nil {
		return nil, err
	}
	log.Info("Censored dictionaries loaded",
		"languages", strings.Join(data.Languages, ","),
		"words", len(data.Words))
	return NewModerator(data.Words, censoredChar, log)
}
