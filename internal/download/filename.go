package download

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultFilenameFormat is the filename template used when none is
// configured. Recognized placeholders: {iso_date}, {time}, {title},
// {subtitle}, {doc_num}, {id}.
const DefaultFilenameFormat = "{iso_date}{time} {title}{doc_num}"

// statementTypes are the document-type labels routed one directory level
// deeper, under a dedicated per-statement subdirectory.
var statementTypes = map[string]bool{
	"Kontoauszug": true,
	"Depotauszug": true,
}

// statementDir is the subdirectory collecting statement-class documents.
const statementDir = "Abschlüsse"

// timeOfDayPattern extracts a time of day from free-text subtitles such
// as "Limit Verkauf um 16:33 Uhr".
var timeOfDayPattern = regexp.MustCompile(`um (\d+:\d+) Uhr`)

// isNumeric reports whether s consists solely of decimal digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// derivePaths computes the two candidate destination paths for a
// document: a clean path and a path suffixed with the document id for
// collision resolution. Both are sanitized for the host filesystem.
func derivePaths(outputPath, format, docID, docDate, docTitle, titleText, subtitleText, subfolder string) (clean, withID string) {
	// The document date arrives as "02.01.2006"; reverse the tokens for
	// an ISO-ordered date.
	tokens := strings.Split(docDate, ".")
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	isoDate := strings.Join(tokens, "-")

	timeOfDay := ""
	if m := timeOfDayPattern.FindStringSubmatch(subtitleText); m != nil {
		timeOfDay = " " + m[1]
	}

	directory := outputPath
	if subfolder != "" {
		directory = filepath.Join(outputPath, subfolder)
	}

	// A doc type like "Kosteninformation 2" keeps its numeric suffix in a
	// separate placeholder.
	docType := docTitle
	docNum := ""
	if words := strings.Split(docTitle, " "); isNumeric(words[len(words)-1]) {
		docNum = " " + words[len(words)-1]
		docType = strings.Join(words[:len(words)-1], " ")
	}

	title := strings.ReplaceAll(strings.ReplaceAll(titleText, "\n", ""), "/", "-")
	subtitle := strings.ReplaceAll(strings.ReplaceAll(subtitleText, "\n", ""), "/", "-")

	filename := strings.NewReplacer(
		"{iso_date}", isoDate,
		"{time}", timeOfDay,
		"{title}", title,
		"{subtitle}", subtitle,
		"{doc_num}", docNum,
		"{id}", docID,
	).Replace(format)
	filenameWithID := filename + " (" + docID + ")"

	if statementTypes[docType] {
		clean = filepath.Join(directory, statementDir, filename, docType+".pdf")
		withID = filepath.Join(directory, statementDir, filenameWithID, docType+".pdf")
	} else {
		clean = filepath.Join(directory, docType, filename+".pdf")
		withID = filepath.Join(directory, docType, filenameWithID+".pdf")
	}

	return sanitizePath(clean), sanitizePath(withID)
}
