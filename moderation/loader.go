package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"groovon/errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

//go:embed censored/*
var censoredFolder embed.FS

// CensoredData carries the result of the loading process including metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// CensoredLoader is responsible for reading and parsing blacklisted words from embedded files.
type CensoredLoader struct {
	fs fs.FS
}

func NewCensoredLoader(f fs.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// LoadAll scans the given directory, identifying .txt files as language
// dictionaries and parsing their contents into a unique list of words.
func (l *CensoredLoader) LoadAll(path string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		// "fr.txt" -> "fr"
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// ⚠️Don't use strings.Split, the scanner handles \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
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

	return &CensoredData{
		Words:     lo.Keys(uniqueWords),
		Languages: languages,
	}, nil
}

// Dictionary is the embedded word list adjusted by the configuration.
type Dictionary struct {
	Add    []string
	Remove []string
}

// Apply merges the additions and drops the removals, case-insensitively.
func (d Dictionary) Apply(words []string) []string {
	removed := lo.Map(d.Remove, func(w string, _ int) string { return strings.ToLower(strings.TrimSpace(w)) })
	all := append(append([]string{}, words...), d.Add...)
	return lo.Uniq(lo.Filter(all, func(w string, _ int) bool {
		w = strings.ToLower(strings.TrimSpace(w))
		return w != "" && !lo.Contains(removed, w)
	}))
}

// LoadModerator builds the content filter from the embedded dictionaries.
func LoadModerator(log *slog.Logger, censoredChar rune, dictionary Dictionary) (*Moderator, error) {
	data, err := NewCensoredLoader(censoredFolder).LoadAll("censored")
	if err != nil {
		return nil, err
	}
	words := dictionary.Apply(data.Words)
	log.Info("Censored dictionaries loaded",
		"languages", strings.Join(data.Languages, ","),
		"words", len(words))
	return NewModerator(words, censoredChar, log)
}
