package ir

import (
	"strings"
)

// IsDirective reports whether the pragma starts with the given
// directive keyword.
func IsDirective(p *Pragma, keyword string) bool {
	if p == nil {
		return false
	}
	content := strings.TrimSpace(p.Content)
	if !strings.HasPrefix(content, keyword) {
		return false
	}
	rest := content[len(keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '('
}

// Params parses a directive into its parameter map. Each token is
// either a bare flag (`target`) or a `name(value)` pair; the directive
// keyword itself appears as a key, carrying its value if one is given:
//
//	loop-fusion group(g1) collapse(2)  ->  {"loop-fusion": "", "group": "g1", "collapse": "2"}
//	loop-interchange(j, i)             ->  {"loop-interchange": "j, i"}
func Params(p *Pragma) map[string]string {
	out := map[string]string{}
	if p == nil {
		return out
	}
	s := strings.TrimSpace(p.Content)
	for i := 0; i < len(s); {
		if s[i] == ' ' || s[i] == '\t' {
			i++
			continue
		}
		start := i
		for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != '(' {
			i++
		}
		name := s[start:i]
		value := ""
		if i < len(s) && s[i] == '(' {
			depth := 0
			vstart := i + 1
			for ; i < len(s); i++ {
				if s[i] == '(' {
					depth++
				} else if s[i] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			value = strings.TrimSpace(s[vstart:i])
			if i < len(s) {
				i++
			}
		}
		if name != "" {
			out[name] = value
		}
	}
	return out
}

// SplitList splits a comma-separated parameter value into trimmed,
// lowered entries. An empty value yields no entries.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}

// StripDirective returns the loop's pragmas with every directive of the
// given keyword removed.
func StripDirective(pragmas []*Pragma, keyword string) []*Pragma {
	var out []*Pragma
	for _, p := range pragmas {
		if !IsDirective(p, keyword) {
			out = append(out, p)
		}
	}
	return out
}

// Directive returns the first attached directive matching the keyword.
func Directive(pragmas []*Pragma, keyword string) *Pragma {
	for _, p := range pragmas {
		if IsDirective(p, keyword) {
			return p
		}
	}
	return nil
}
