package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SpeakerColumns are the speaker id columns accepted in speaker metadata,
// VoxCommunis first, then Common Voice.
var SpeakerColumns = []string{"speaker_id", "client_id"}

// FindSpeakerFile returns the first .tsv file in dir, by name, whose name
// starts with prefix.
func FindSpeakerFile(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list speaker directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".tsv") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no speaker file for %q in %s", prefix, dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// LoadSpeakers maps file ids to speaker ids. The file id is the `path` column
// without its .mp3 extension.
func LoadSpeakers(path string) (map[string]string, error) {
	t, err := ReadTSV(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require("path"); err != nil {
		return nil, fmt.Errorf("speaker file %s: %w", filepath.Base(path), err)
	}

	speakerCol := ""
	for _, c := range SpeakerColumns {
		if t.Has(c) {
			speakerCol = c
			break
		}
	}
	if speakerCol == "" {
		return nil, fmt.Errorf("speaker file %s: %w: %s", filepath.Base(path), ErrMissingColumn, strings.Join(SpeakerColumns, " or "))
	}

	speakers := make(map[string]string, t.Len())
	for i := range t.Rows {
		id := strings.ReplaceAll(t.Value(i, "path"), ".mp3", "")
		if _, seen := speakers[id]; seen {
			continue
		}
		speakers[id] = t.Value(i, speakerCol)
	}
	return speakers, nil
}

// SimilarityScore is one line of a speaker verification score file.
type SimilarityScore struct {
	FileID    string
	Enrolment string
	Score     float64
}

// LoadSimilarityScores reads space separated `<file>.wav <enrolment> <score>`
// lines. Malformed lines are returned as an error.
func LoadSimilarityScores(path string) ([]SimilarityScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open similarity scores: %w", err)
	}
	defer f.Close()

	var scores []SimilarityScore
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("similarity scores line %d: expected 3 fields, got %d", line, len(fields))
		}
		scores = append(scores, SimilarityScore{
			FileID:    strings.ReplaceAll(fields[0], ".wav", ""),
			Enrolment: fields[1],
			Score:     ParseFloat(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read similarity scores: %w", err)
	}
	return scores, nil
}

// FilesAbove returns the set of file ids with a score strictly above min.
func FilesAbove(scores []SimilarityScore, min float64) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range scores {
		if s.Score > min {
			out[s.FileID] = struct{}{}
		}
	}
	return out
}
