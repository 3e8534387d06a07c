package rules

import "sortd/internal/config"

// builtinDefs is the rule set used when the configuration defines none. It
// covers the file types most users encounter, with date bucketing for media
// that is searched by "when" rather than "what".
func builtinDefs() map[string]config.RuleConfig {
	return map[string]config.RuleConfig{
		"images": {
			Extensions:      []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".svg", ".webp", ".ico", ".heic"},
			SubfolderByDate: true,
			DateFormat:      "%Y/%m",
		},
		"documents": {
			Extensions: []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".odt", ".pages"},
			Subfolders: map[string][]string{
				"PDFs":            {".pdf"},
				"Word Documents":  {".doc", ".docx", ".odt"},
				"Text Files":      {".txt", ".rtf"},
				"Other Documents": {},
			},
		},
		"office": {
			Extensions: []string{".xls", ".xlsx", ".ppt", ".pptx", ".odp", ".ods", ".csv", ".numbers", ".keynote"},
			Subfolders: map[string][]string{
				"Spreadsheets":  {".xls", ".xlsx", ".ods", ".csv", ".numbers"},
				"Presentations": {".ppt", ".pptx", ".odp", ".keynote"},
			},
		},
		"audio": {
			Extensions: []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4a"},
		},
		"video": {
			Extensions:      []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".webm", ".m4v"},
			SubfolderByDate: true,
			DateFormat:      "%Y",
		},
		"archives": {
			Extensions: []string{".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz"},
		},
		"development": {
			Extensions: []string{".py", ".js", ".html", ".css", ".java", ".cpp", ".c", ".php", ".rb", ".go", ".rs", ".swift"},
			Subfolders: map[string][]string{
				"Python":     {".py"},
				"Web":        {".html", ".css", ".js"},
				"Other Code": {},
			},
		},
		"software": {
			Extensions: []string{".exe", ".msi", ".dmg", ".pkg", ".deb", ".rpm", ".appimage"},
		},
	}
}

// Default returns the built-in catalog. The definitions are static and known
// to validate.
func Default() *Catalog {
	catalog, err := Build(builtinDefs())
	if err != nil {
		panic("rules: built-in definitions failed validation: " + err.Error())
	}
	return catalog
}

// FromConfig builds a catalog from the configuration, falling back to the
// built-in rule set when the config defines no rules.
func FromConfig(cfg *config.Config) (*Catalog, error) {
	if cfg == nil || len(cfg.Rules) == 0 {
		return Default(), nil
	}
	return Build(cfg.Rules)
}
