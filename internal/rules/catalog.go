package rules

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sortd/internal/config"
	"sortd/internal/faults"
)

// FallbackCategory receives files whose extension matches no rule.
const FallbackCategory = "Other"

// SubBucket is a named subdivision within a category. An empty extension list
// marks the category's catch-all bucket.
type SubBucket struct {
	Name       string
	Extensions []string
}

// Rule describes one category: which extensions it matches and how matched
// files are placed under it.
type Rule struct {
	Category        string
	Extensions      []string
	SubfolderByDate bool
	DateFormat      string
	SubBuckets      []SubBucket
	CatchAll        string
}

// Match is the result of a catalog lookup.
type Match struct {
	Category  string
	SubBucket string
	Rule      *Rule
}

// Catalog is the compiled, immutable rule set.
type Catalog struct {
	rules []Rule
	byExt map[string]Match
}

var titleCaser = cases.Title(language.English)

// Build validates the raw rule definitions and compiles them into a Catalog.
// Errors carry faults.ErrConfiguration and name the offending category.
func Build(defs map[string]config.RuleConfig) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, faults.Wrap(faults.ErrConfiguration, "rules", "build catalog", "no rules defined", nil)
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	catalog := &Catalog{
		rules: make([]Rule, 0, len(defs)),
		byExt: make(map[string]Match),
	}
	extOwner := make(map[string]string)
	// extBucket is keyed by category + extension once ownership is settled.
	type placement struct {
		category string
		bucket   string
	}
	placements := make(map[string]placement)

	for _, name := range names {
		def := defs[name]
		category := displayName(name)
		if category == "" {
			return nil, buildErr(name, "category name is empty")
		}
		if strings.EqualFold(category, FallbackCategory) {
			return nil, buildErr(name, fmt.Sprintf("category name %q is reserved for unmatched files", FallbackCategory))
		}
		if len(def.Extensions) == 0 {
			return nil, buildErr(name, "must list at least one extension")
		}

		rule := Rule{
			Category:        category,
			SubfolderByDate: def.SubfolderByDate,
			DateFormat:      strings.TrimSpace(def.DateFormat),
		}
		if rule.SubfolderByDate && rule.DateFormat == "" {
			rule.DateFormat = "%Y"
		}

		categoryExts := make(map[string]struct{}, len(def.Extensions))
		for _, raw := range def.Extensions {
			ext, err := normalizeExt(raw)
			if err != nil {
				return nil, buildErr(name, err.Error())
			}
			if _, dup := categoryExts[ext]; dup {
				return nil, buildErr(name, fmt.Sprintf("extension %q listed twice", ext))
			}
			if owner, claimed := extOwner[ext]; claimed {
				return nil, buildErr(name, fmt.Sprintf("extension %q already mapped by category %q", ext, owner))
			}
			categoryExts[ext] = struct{}{}
			extOwner[ext] = category
			rule.Extensions = append(rule.Extensions, ext)
		}
		sort.Strings(rule.Extensions)

		if len(def.Subfolders) > 0 {
			bucketNames := make([]string, 0, len(def.Subfolders))
			for bucket := range def.Subfolders {
				bucketNames = append(bucketNames, bucket)
			}
			sort.Strings(bucketNames)

			bucketOf := make(map[string]string)
			for _, bucket := range bucketNames {
				trimmedBucket := strings.TrimSpace(bucket)
				if trimmedBucket == "" {
					return nil, buildErr(name, "subfolder name is empty")
				}
				exts := def.Subfolders[bucket]
				if len(exts) == 0 {
					if rule.CatchAll != "" {
						return nil, buildErr(name, fmt.Sprintf("subfolders %q and %q both declare a catch-all (empty extension list)", rule.CatchAll, trimmedBucket))
					}
					rule.CatchAll = trimmedBucket
					rule.SubBuckets = append(rule.SubBuckets, SubBucket{Name: trimmedBucket})
					continue
				}
				sub := SubBucket{Name: trimmedBucket}
				for _, raw := range exts {
					ext, err := normalizeExt(raw)
					if err != nil {
						return nil, buildErr(name, err.Error())
					}
					if _, listed := categoryExts[ext]; !listed {
						return nil, buildErr(name, fmt.Sprintf("subfolder %q references extension %q not listed by the category", trimmedBucket, ext))
					}
					if prev, taken := bucketOf[ext]; taken {
						return nil, buildErr(name, fmt.Sprintf("extension %q appears in subfolders %q and %q", ext, prev, trimmedBucket))
					}
					bucketOf[ext] = trimmedBucket
					sub.Extensions = append(sub.Extensions, ext)
				}
				sort.Strings(sub.Extensions)
				rule.SubBuckets = append(rule.SubBuckets, sub)
			}

			for ext := range categoryExts {
				bucket, ok := bucketOf[ext]
				if !ok {
					bucket = rule.CatchAll
				}
				placements[ext] = placement{category: category, bucket: bucket}
			}
		} else {
			for ext := range categoryExts {
				placements[ext] = placement{category: category}
			}
		}

		catalog.rules = append(catalog.rules, rule)
	}

	for i := range catalog.rules {
		rule := &catalog.rules[i]
		for _, ext := range rule.Extensions {
			p := placements[ext]
			catalog.byExt[ext] = Match{Category: p.category, SubBucket: p.bucket, Rule: rule}
		}
	}

	return catalog, nil
}

// Lookup resolves an extension to its category and sub-bucket. The extension
// is matched case-insensitively and must include the leading dot; ok is false
// when no rule matches, in which case the caller falls back to
// FallbackCategory.
func (c *Catalog) Lookup(ext string) (Match, bool) {
	match, ok := c.byExt[strings.ToLower(ext)]
	return match, ok
}

// Rules returns the compiled rules in deterministic (category-sorted) order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

func buildErr(category, message string) error {
	return faults.Wrap(faults.ErrConfiguration, "rules", "build catalog", fmt.Sprintf("category %q: %s", category, message), nil)
}

func normalizeExt(raw string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(raw))
	if ext == "" {
		return "", fmt.Errorf("extension is empty")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == "." || strings.ContainsAny(ext, "/\\") {
		return "", fmt.Errorf("extension %q is malformed", raw)
	}
	return ext, nil
}

// displayName folds an all-lowercase config key such as "images" into the
// folder name "Images"; mixed-case keys pass through unchanged.
func displayName(key string) string {
	name := strings.TrimSpace(key)
	if name == strings.ToLower(name) {
		return titleCaser.String(name)
	}
	return name
}
