package moderation

import (
	"bufio"
	"embed"
	"io/fs"
	"path"
	"strings"

	apperrors "chat-hive/errors"
)

//go:embed censored/*.txt
var censoredFolder embed.FS

// WordData holds the deduplicated censored words and the language files
// they were loaded from.
type WordData struct {
	Words     []string
	Languages []string
}

// LoadWords reads every embedded wordlist. One word per line, '#' starts a
// comment, blank lines ignored.
func LoadWords() (WordData, error) {
	return loadWords(censoredFolder, "censored")
}

func loadWords(fsys fs.FS, dir string) (WordData, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return WordData{}, err
	}

	seen := make(map[string]struct{})
	var data WordData
	for _, entry := range entries {
		if entry.IsDir() {
			return WordData{}, apperrors.ErrOnlyCensoredFiles
		}
		lang := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		data.Languages = append(data.Languages, lang)

		f, err := fsys.Open(path.Join(dir, entry.Name()))
		if err != nil {
			return WordData{}, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			word = strings.ToLower(word)
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			data.Words = append(data.Words, word)
		}
		_ = f.Close()
		if err := scanner.Err(); err != nil {
			return WordData{}, err
		}
	}

	if len(data.Words) == 0 {
		return WordData{}, apperrors.ErrEmptyWords
	}
	return data, nil
}
