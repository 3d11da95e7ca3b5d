package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Supported lists the languages shipped with the player
var Supported = []string{"en", "sr", "de"}

// DefaultLang is used when a request names no supported language
const DefaultLang = "en"

// Translator maps language codes to flat string tables keyed by dotted paths
type Translator struct {
	mu          sync.RWMutex
	tables      map[string]map[string]string
	defaultLang string
}

// New creates a translator preloaded with the embedded tables
func New(defaultLang string) (*Translator, error) {
	if defaultLang == "" {
		defaultLang = DefaultLang
	}
	t := &Translator{
		tables:      make(map[string]map[string]string),
		defaultLang: defaultLang,
	}
	if err := t.loadFS(embedded, "locales"); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFromDir merges every <lang>.yaml in dir over the current tables
func (t *Translator) LoadFromDir(dir string) error {
	slog.Info("loading locales from directory", "dir", dir)
	return t.loadFS(os.DirFS(dir), ".")
}

func (t *Translator) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read locales: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		if err := t.Load(strings.TrimSuffix(e.Name(), ext), data); err != nil {
			slog.Warn("failed to load locale", "file", e.Name(), "error", err)
			continue
		}
		loaded++
	}

	slog.Info("locales loaded", "count", loaded)
	return nil
}

// Load parses one YAML table and merges it into lang
func (t *Translator) Load(lang string, data []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	flat := make(map[string]string)
	flatten("", raw, flat)

	t.mu.Lock()
	defer t.mu.Unlock()

	table, ok := t.tables[lang]
	if !ok {
		table = make(map[string]string, len(flat))
		t.tables[lang] = table
	}
	for k, v := range flat {
		table[k] = v
	}
	return nil
}

func flatten(prefix string, node interface{}, out map[string]string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(join(k), child, out)
		}
	case []interface{}:
		for i, child := range v {
			flatten(join(strconv.Itoa(i)), child, out)
		}
	case nil:
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

// Lookup returns the string for key, falling back to the default language and then the key itself
func (t *Translator) Lookup(lang, key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.tables[lang][key]; ok {
		return s
	}
	if s, ok := t.tables[t.defaultLang][key]; ok {
		return s
	}
	return key
}

// Format looks up key and substitutes {name} placeholders
func (t *Translator) Format(lang, key string, vars map[string]string) string {
	s := t.Lookup(lang, key)
	if len(vars) == 0 {
		return s
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Lines returns a list entry such as the intro instructions
func (t *Translator) Lines(lang, key string) []string {
	var lines []string
	for i := 0; ; i++ {
		k := key + "." + strconv.Itoa(i)
		s := t.Lookup(lang, k)
		if s == k {
			return lines
		}
		lines = append(lines, s)
	}
}

// Table returns a copy of a language's table merged over the default language
func (t *Translator) Table(lang string) map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.tables[t.defaultLang]))
	for k, v := range t.tables[t.defaultLang] {
		out[k] = v
	}
	for k, v := range t.tables[lang] {
		out[k] = v
	}
	return out
}

// Languages lists every loaded language
func (t *Translator) Languages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	langs := make([]string, 0, len(t.tables))
	for lang := range t.tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Has reports whether a table exists for lang
func (t *Translator) Has(lang string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tables[lang]
	return ok
}

// Negotiate picks a language from, in order, an explicit choice, a stored
// preference and an Accept-Language header. Header entries are ranked by
// their q-weights.
func (t *Translator) Negotiate(explicit, stored, acceptLanguage string) string {
	for _, candidate := range []string{explicit, stored} {
		if c := normalize(candidate); c != "" && t.Has(c) {
			return c
		}
	}

	if lang, ok := t.match(acceptLanguage); ok {
		return lang
	}
	return t.defaultLang
}

func (t *Translator) match(acceptLanguage string) (string, bool) {
	if strings.TrimSpace(acceptLanguage) == "" {
		return "", false
	}
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return "", false
	}

	// the default goes first so the matcher falls back to it
	langs := []string{t.defaultLang}
	for _, l := range t.Languages() {
		if l != t.defaultLang {
			langs = append(langs, l)
		}
	}

	names := make([]string, 0, len(langs))
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		names = append(names, l)
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return "", false
	}

	_, idx, conf := language.NewMatcher(tags).Match(desired...)
	if conf == language.No || idx < 0 || idx >= len(names) {
		return "", false
	}
	return names[idx], true
}

func normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
